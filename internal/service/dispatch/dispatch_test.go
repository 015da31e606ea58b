package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nammaspot/parkgo/internal/backend"
	"github.com/nammaspot/parkgo/internal/backend/mocks"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecute_RoutesByKind(t *testing.T) {
	api := new(mocks.MockAPI)
	ctx := backend.WithCredentials(context.Background(), "sid=1")

	occ := domain.SlotOccupancy{City: "Chennai", Slots: []string{"003"}}
	task, err := NewTask(ctx, domain.TaskMarkOccupied, occ)
	require.NoError(t, err)
	assert.Equal(t, "sid=1", task.Cookie)

	api.On("MarkSlotsOccupied", mock.MatchedBy(func(ctx context.Context) bool {
		return backend.Credentials(ctx) == "sid=1"
	}), occ).Return(nil).Once()

	require.NoError(t, Execute(context.Background(), api, task))

	notice, err := NewTask(context.Background(), domain.TaskPostNotice, domain.Notice{Noti: "YOU ARE IN"})
	require.NoError(t, err)
	api.On("PostNotice", mock.Anything, domain.Notice{Noti: "YOU ARE IN"}).Return(errors.New("down")).Once()

	err = Execute(context.Background(), api, notice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post_notice")

	err = Execute(context.Background(), api, domain.Task{Kind: "bogus"})
	assert.Error(t, err)

	api.AssertExpectations(t)
}

func TestDirect_DetachesFromCancellation(t *testing.T) {
	api := new(mocks.MockAPI)
	d := NewDirect(api, discard())

	n := domain.Notification{Number: "9198", Message: "YOU ARE OUT"}
	task, err := NewTask(context.Background(), domain.TaskSendNotification, n)
	require.NoError(t, err)

	api.On("SendNotification", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), n).Return(errors.New("sms gateway down")).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Dispatch(ctx, task)
	d.Wait()

	api.AssertExpectations(t)
}

type fakeQueue struct {
	err   error
	tasks []domain.Task
}

func (q *fakeQueue) Enqueue(ctx context.Context, tasks ...domain.Task) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, tasks...)
	return nil
}

type recordingDispatcher struct {
	tasks []domain.Task
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, tasks ...domain.Task) {
	r.tasks = append(r.tasks, tasks...)
}

func TestOutbox_EnqueuesAndNotifies(t *testing.T) {
	q := &fakeQueue{}
	fb := &recordingDispatcher{}
	woken := 0

	o := NewOutbox(q, fb, func() { woken++ }, discard())
	task, _ := domain.NewTask(domain.TaskPostNotice, domain.Notice{Noti: "x"})

	o.Dispatch(context.Background(), task)

	assert.Len(t, q.tasks, 1)
	assert.Empty(t, fb.tasks)
	assert.Equal(t, 1, woken)
}

func TestOutbox_FallsBackWhenQueueFails(t *testing.T) {
	q := &fakeQueue{err: errors.New("db down")}
	fb := &recordingDispatcher{}

	o := NewOutbox(q, fb, nil, discard())
	task, _ := domain.NewTask(domain.TaskPostNotice, domain.Notice{Noti: "x"})

	o.Dispatch(context.Background(), task)

	assert.Len(t, fb.tasks, 1)
}
