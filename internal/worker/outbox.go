package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/service/dispatch"
)

const maxBackoff = 10 * time.Minute

// Queue is the durable task store the worker drains.
type Queue interface {
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEntry, error)
	MarkDone(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string, nextRunAt time.Time, dead bool) error
}

// SlotsNotifier tells slot board watchers that a city's occupancy changed.
type SlotsNotifier interface {
	PublishSlotsChanged(ctx context.Context, city string) error
}

type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	Backoff      time.Duration
	BatchSize    int
	Lease        time.Duration
}

// Outbox delivers queued side effects with exponential backoff.
type Outbox struct {
	q        Queue
	exec     dispatch.Executor
	notifier SlotsNotifier
	cfg      Config
	logger *slog.Logger
	wake   chan struct{}
	now    func() time.Time
}

// NewOutbox builds the worker. notifier may be nil.
func NewOutbox(q Queue, exec dispatch.Executor, notifier SlotsNotifier, cfg Config, logger *slog.Logger) *Outbox {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Minute
	}

	return &Outbox{
		q:        q,
		exec:     exec,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Wake asks the worker to poll now instead of waiting for the next tick.
func (w *Outbox) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (w *Outbox) Run(ctx context.Context) error {
	w.logger.Info("outbox worker started", "poll_interval", w.cfg.PollInterval)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return nil
		case <-ticker.C:
		case <-w.wake:
		}

		for {
			n, err := w.ProcessDue(ctx)
			if err != nil {
				w.logger.Error("outbox poll failed", "op", "worker.Outbox.Run", "error", err)
				break
			}
			if n < w.cfg.BatchSize {
				break
			}
		}
	}
}

// ProcessDue runs one batch of due tasks and returns how many were claimed.
func (w *Outbox) ProcessDue(ctx context.Context) (int, error) {
	entries, err := w.q.ClaimDue(ctx, w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		w.process(ctx, e)
	}

	return len(entries), nil
}

func (w *Outbox) process(ctx context.Context, e domain.OutboxEntry) {
	err := dispatch.Execute(ctx, w.exec, e.Task)
	if err == nil {
		if err := w.q.MarkDone(ctx, e.ID); err != nil {
			w.logger.Error("outbox mark done failed", "id", e.ID, "error", err)
		}
		if e.Task.Kind == domain.TaskMarkOccupied {
			w.slotsChanged(ctx, e)
		}
		return
	}

	dead := e.Attempts >= w.cfg.MaxAttempts
	next := w.now().Add(w.backoff(e.Attempts))

	if dead {
		w.logger.Error("outbox task dead",
			"id", e.ID, "kind", e.Task.Kind, "attempts", e.Attempts, "error", err)
	} else {
		w.logger.Warn("outbox task failed, will retry",
			"id", e.ID, "kind", e.Task.Kind, "attempts", e.Attempts, "next_run_at", next, "error", err)
	}

	if err := w.q.MarkFailed(ctx, e.ID, err.Error(), next, dead); err != nil {
		w.logger.Error("outbox mark failed failed", "id", e.ID, "error", err)
	}
}

// slotsChanged runs once the backend has the slots as booked, so watchers
// re-reading the board see them taken.
func (w *Outbox) slotsChanged(ctx context.Context, e domain.OutboxEntry) {
	if w.notifier == nil {
		return
	}

	var occ domain.SlotOccupancy
	if err := json.Unmarshal(e.Task.Payload, &occ); err != nil || occ.City == "" {
		return
	}

	if err := w.notifier.PublishSlotsChanged(ctx, occ.City); err != nil {
		w.logger.Warn("publish slots changed failed", "id", e.ID, "city", occ.City, "error", err)
	}
}

// backoff doubles per attempt: Backoff, 2×Backoff, 4×Backoff, ...
func (w *Outbox) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	shift := attempts - 1
	if shift > 20 {
		return maxBackoff
	}

	delay := w.cfg.Backoff * time.Duration(1<<shift)
	if delay > maxBackoff {
		delay = maxBackoff
	}

	return delay
}
