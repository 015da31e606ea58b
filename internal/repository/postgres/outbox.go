package postgresrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nammaspot/parkgo/internal/domain"
	"gopkg.in/guregu/null.v4"
)

type OutboxRepo struct {
	pool DB
	db   DB
}

func (r *OutboxRepo) With(db DB) *OutboxRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OutboxRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Enqueue inserts tasks as pending entries due immediately.
func (r *OutboxRepo) Enqueue(ctx context.Context, tasks ...domain.Task) error {
	const op = "postgresrepo.OutboxRepo.Enqueue"

	if len(tasks) == 0 {
		return nil
	}

	db := r.handle()

	b := &pgx.Batch{}
	for _, t := range tasks {
		b.Queue(
			`INSERT INTO outbox (id, kind, payload, cookie, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(),
			string(t.Kind),
			[]byte(t.Payload),
			null.NewString(t.Cookie, t.Cookie != ""),
			string(domain.OutboxPending),
		)
	}

	br := db.SendBatch(ctx, b)
	defer br.Close()

	for range tasks {
		if _, err := br.Exec(); err != nil {
			return wrapDBErr(op, err)
		}
	}

	return nil
}

// ClaimDue leases up to limit due entries. Each claimed entry has its
// attempt counter bumped and is hidden from other workers for lease.
func (r *OutboxRepo) ClaimDue(
	ctx context.Context,
	limit int,
	lease time.Duration,
) ([]domain.OutboxEntry, error) {
	const op = "postgresrepo.OutboxRepo.ClaimDue"

	db := r.handle()

	rows, err := db.Query(ctx,
		`UPDATE outbox o
		 SET next_run_at = now() + make_interval(secs => $2),
		     attempts = o.attempts + 1
		 FROM (
			SELECT id FROM outbox
			WHERE status = 'pending' AND next_run_at <= now()
			ORDER BY next_run_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 ) due
		 WHERE o.id = due.id
		 RETURNING o.id, o.kind, o.payload, o.cookie, o.status,
		           o.attempts, o.last_error, o.next_run_at, o.created_at`,
		limit, lease.Seconds(),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.OutboxEntry
	for rows.Next() {
		var (
			e       domain.OutboxEntry
			kind    string
			status  string
			payload []byte
			cookie  null.String
			lastErr null.String
		)
		if err := rows.Scan(
			&e.ID, &kind, &payload, &cookie, &status,
			&e.Attempts, &lastErr, &e.NextRunAt, &e.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		e.Task = domain.Task{
			Kind:    domain.TaskKind(kind),
			Payload: payload,
			Cookie:  cookie.ValueOrZero(),
		}
		e.Status = domain.OutboxStatus(status)
		e.LastError = lastErr.ValueOrZero()

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OutboxRepo) MarkDone(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.OutboxRepo.MarkDone"

	db := r.handle()

	_, err := db.Exec(ctx,
		`UPDATE outbox SET status = $2, done_at = $3, last_error = NULL
		 WHERE id = $1`,
		id, string(domain.OutboxDone), null.TimeFrom(time.Now()),
	)

	return wrapDBErr(op, err)
}

// MarkFailed records a failed attempt. A dead entry is never retried.
func (r *OutboxRepo) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	cause string,
	nextRunAt time.Time,
	dead bool,
) error {
	const op = "postgresrepo.OutboxRepo.MarkFailed"

	db := r.handle()

	status := domain.OutboxPending
	if dead {
		status = domain.OutboxDead
	}

	_, err := db.Exec(ctx,
		`UPDATE outbox SET status = $2, last_error = $3, next_run_at = $4
		 WHERE id = $1`,
		id, string(status), null.StringFrom(cause), nextRunAt,
	)

	return wrapDBErr(op, err)
}
