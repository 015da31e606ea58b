package uow

import (
	"context"

	postgresrepo "github.com/nammaspot/parkgo/internal/repository/postgres"
)

const maxAttempts = 3

// AfterCommit runs once the ticket and its tasks are durable.
type AfterCommit func(ctx context.Context)

// UoW writes a ticket together with its outbox tasks.
type UoW struct {
	store *postgresrepo.Store
}

func NewUoW(store *postgresrepo.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn in a transaction, retrying serialization failures and
// deadlocks. Hooks registered by a failed attempt are discarded; only
// those of the committed attempt run.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	run := func(ctx context.Context, tx postgresrepo.DB) error {
		hooks = hooks[:0]
		return fn(ctx, tx, func(h AfterCommit) { hooks = append(hooks, h) })
	}

	err := u.store.RunTx(ctx, run)
	for attempt := 1; attempt < maxAttempts && postgresrepo.IsRetryable(err); attempt++ {
		err = u.store.RunTx(ctx, run)
	}
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
