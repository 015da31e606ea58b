package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlotsPubSub fans out "slot occupancy changed" events per city across
// BFF instances.
type SlotsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSlotsPubSub(rdb *redis.Client) *SlotsPubSub {
	return &SlotsPubSub{
		rdb:     rdb,
		channel: ChannelSlotsChanged(),
	}
}

type slotsChangedMsg struct {
	Type   string `json:"type"`
	City   string `json:"city"`
	TsUnix int64  `json:"ts_unix"`
}

func (p *SlotsPubSub) PublishSlotsChanged(ctx context.Context, city string) error {
	msg := slotsChangedMsg{
		Type:   "slots_changed",
		City:   city,
		TsUnix: time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, invoking handler for each change until ctx is done.
func (p *SlotsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, city string)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev slotsChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.City != "" {
				handler(ctx, ev.City)
			}
		}
	}
}
