package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	postgresrepo "github.com/nammaspot/parkgo/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records commits and rollbacks. Any other pgx.Tx method panics.
type fakeTx struct {
	pgx.Tx
	pool *fakePool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.pool.commits++
	if len(t.pool.commitErrs) > 0 {
		err := t.pool.commitErrs[0]
		t.pool.commitErrs = t.pool.commitErrs[1:]
		return err
	}
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.pool.rollbacks++
	return nil
}

type fakePool struct {
	postgresrepo.DB
	begins     int
	commits    int
	rollbacks  int
	commitErrs []error
}

func (p *fakePool) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	p.begins++
	return &fakeTx{pool: p}, nil
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func TestDo_RunsHooksAfterCommit(t *testing.T) {
	pool := &fakePool{}
	u := NewUoW(postgresrepo.NewStore(pool))

	var ran []string
	err := u.Do(context.Background(), func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error {
		after(func(ctx context.Context) { ran = append(ran, "wake") })
		assert.Empty(t, ran)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"wake"}, ran)
	assert.Equal(t, 1, pool.begins)
	assert.Equal(t, 1, pool.commits)
	assert.Zero(t, pool.rollbacks)
}

func TestDo_RetryDiscardsHooksOfFailedAttempt(t *testing.T) {
	pool := &fakePool{}
	u := NewUoW(postgresrepo.NewStore(pool))

	var (
		attempt int
		ran     []int
	)
	err := u.Do(context.Background(), func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error {
		attempt++
		n := attempt
		after(func(ctx context.Context) { ran = append(ran, n) })
		if n == 1 {
			return serializationFailure()
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2}, ran)
	assert.Equal(t, 2, pool.begins)
	assert.Equal(t, 1, pool.rollbacks)
	assert.Equal(t, 1, pool.commits)
}

func TestDo_RetriesCommitSerializationFailure(t *testing.T) {
	pool := &fakePool{commitErrs: []error{serializationFailure()}}
	u := NewUoW(postgresrepo.NewStore(pool))

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hooks++ })
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, hooks)
	assert.Equal(t, 2, pool.begins)
	assert.Equal(t, 2, pool.commits)
}

func TestDo_StopsOnNonRetryableError(t *testing.T) {
	pool := &fakePool{}
	u := NewUoW(postgresrepo.NewStore(pool))
	boom := errors.New("unique violation")

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hooks++ })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, hooks)
	assert.Equal(t, 1, pool.begins)
	assert.Equal(t, 1, pool.rollbacks)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	pool := &fakePool{}
	u := NewUoW(postgresrepo.NewStore(pool))

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hooks++ })
		return serializationFailure()
	})

	require.Error(t, err)
	assert.True(t, postgresrepo.IsRetryable(err))
	assert.Zero(t, hooks)
	assert.Equal(t, maxAttempts, pool.begins)
}
