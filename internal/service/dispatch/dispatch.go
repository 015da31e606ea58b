package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nammaspot/parkgo/internal/backend"
	"github.com/nammaspot/parkgo/internal/domain"
)

// Executor is the part of the backend that fire-and-forget tasks call.
type Executor interface {
	ConfirmAggregate(ctx context.Context, in domain.AggregateConfirmation) error
	MarkSlotsOccupied(ctx context.Context, in domain.SlotOccupancy) error
	PostNotice(ctx context.Context, in domain.Notice) error
	SendNotification(ctx context.Context, in domain.Notification) error
}

// Dispatcher hands off side effects. Callers never observe their failure.
type Dispatcher interface {
	Dispatch(ctx context.Context, tasks ...domain.Task)
}

// NewTask builds a task that carries the caller's backend credentials.
func NewTask(ctx context.Context, kind domain.TaskKind, payload any) (domain.Task, error) {
	t, err := domain.NewTask(kind, payload)
	if err != nil {
		return domain.Task{}, err
	}
	t.Cookie = backend.Credentials(ctx)
	return t, nil
}

// Execute performs a single task against the backend.
func Execute(ctx context.Context, exec Executor, t domain.Task) error {
	const op = "dispatch.Execute"

	ctx = backend.WithCredentials(ctx, t.Cookie)

	var err error
	switch t.Kind {
	case domain.TaskConfirmAggregate:
		var in domain.AggregateConfirmation
		if err = json.Unmarshal(t.Payload, &in); err == nil {
			err = exec.ConfirmAggregate(ctx, in)
		}
	case domain.TaskMarkOccupied:
		var in domain.SlotOccupancy
		if err = json.Unmarshal(t.Payload, &in); err == nil {
			err = exec.MarkSlotsOccupied(ctx, in)
		}
	case domain.TaskPostNotice:
		var in domain.Notice
		if err = json.Unmarshal(t.Payload, &in); err == nil {
			err = exec.PostNotice(ctx, in)
		}
	case domain.TaskSendNotification:
		var in domain.Notification
		if err = json.Unmarshal(t.Payload, &in); err == nil {
			err = exec.SendNotification(ctx, in)
		}
	default:
		err = fmt.Errorf("unknown task kind %q", t.Kind)
	}
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, t.Kind, err)
	}

	return nil
}

// Direct runs each task once in the background and logs failures.
type Direct struct {
	exec   Executor
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewDirect(exec Executor, logger *slog.Logger) *Direct {
	return &Direct{exec: exec, logger: logger}
}

func (d *Direct) Dispatch(ctx context.Context, tasks ...domain.Task) {
	ctx = context.WithoutCancel(ctx)

	for _, t := range tasks {
		d.wg.Add(1)
		go func(t domain.Task) {
			defer d.wg.Done()
			if err := Execute(ctx, d.exec, t); err != nil {
				d.logger.Error("side effect failed", "op", "dispatch.Direct", "kind", t.Kind, "error", err)
			}
		}(t)
	}
}

// Wait blocks until every dispatched task has finished.
func (d *Direct) Wait() {
	d.wg.Wait()
}

// Enqueuer persists tasks for later execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...domain.Task) error
}

// Outbox queues tasks for the retrying worker. If the queue is unavailable
// the tasks are sent directly instead.
type Outbox struct {
	q        Enqueuer
	fallback Dispatcher
	notify   func()
	logger   *slog.Logger
}

func NewOutbox(q Enqueuer, fallback Dispatcher, notify func(), logger *slog.Logger) *Outbox {
	return &Outbox{
		q:        q,
		fallback: fallback,
		notify:   notify,
		logger:   logger,
	}
}

func (o *Outbox) Dispatch(ctx context.Context, tasks ...domain.Task) {
	if len(tasks) == 0 {
		return
	}

	if err := o.q.Enqueue(context.WithoutCancel(ctx), tasks...); err != nil {
		o.logger.Error("outbox enqueue failed, sending directly", "op", "dispatch.Outbox", "error", err)
		o.fallback.Dispatch(ctx, tasks...)
		return
	}

	if o.notify != nil {
		o.notify()
	}
}
