package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/domain"
)

type TicketRepo struct {
	pool DB
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *TicketRepo) Insert(ctx context.Context, t domain.Ticket) error {
	const op = "postgresrepo.TicketRepo.Insert"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO tickets (
			id, pin, city, slot_numbers, vehicle_number, name,
			date, entry_time, exit_time, total_amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.PIN, t.City, t.SlotNumbers, t.VehicleNumber, t.Name,
		t.Date, t.EntryTime, t.ExitTime, t.TotalAmount, t.CreatedAt,
	)

	return wrapDBErr(op, err)
}

func (r *TicketRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.Get"

	db := r.handle()

	var t domain.Ticket
	err := db.QueryRow(ctx,
		`SELECT id, pin, city, slot_numbers, vehicle_number, name,
		        date, entry_time, exit_time, total_amount, created_at
		 FROM tickets WHERE id = $1`,
		id,
	).Scan(
		&t.ID, &t.PIN, &t.City, &t.SlotNumbers, &t.VehicleNumber, &t.Name,
		&t.Date, &t.EntryTime, &t.ExitTime, &t.TotalAmount, &t.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}
