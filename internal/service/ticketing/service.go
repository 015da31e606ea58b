package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/repository"
	"github.com/nammaspot/parkgo/internal/service/dispatch"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"
)

const (
	placeholder  = "N/A"
	zeroAmount   = "0.00"
	defaultQRPix = 256
)

// ticketNS derives ticket ids from confirmation ids so that issuing twice
// yields the same ticket.
var ticketNS = uuid.MustParse("3f1c8a52-7d0b-4c55-9a57-0b6f0e0c2d11")

type Backend interface {
	LatestUserBooking(ctx context.Context) (domain.BookingRecord, error)
	UserProfile(ctx context.Context) (domain.Profile, error)
}

type Ledger interface {
	Record(ctx context.Context, t domain.Ticket, tasks []domain.Task) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
}

type Service struct {
	backend Backend
	ledger  Ledger
	logger  *slog.Logger
	now     func() time.Time
}

func New(backend Backend, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		ledger:  ledger,
		logger:  logger,
		now:     time.Now,
	}
}

// TicketID is the ticket id issued for a confirmation.
func TicketID(confirmationID string) uuid.UUID {
	return uuid.NewSHA1(ticketNS, []byte(confirmationID))
}

// Issue builds the ticket for a confirmed booking. The canonical record and
// the display name are re-fetched; fields the backend does not supply fall
// back to the handoff and then to the confirmed booking. Aggregate
// confirmation and slot occupancy are queued with the ticket and never fail
// issuance.
func (s *Service) Issue(
	ctx context.Context,
	confirmationID string,
	b domain.Booking,
	h domain.Handoff,
) (*domain.Ticket, error) {
	const op = "service.ticketing.Issue"

	if h.PIN == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoHandoff)
	}

	id := TicketID(confirmationID)

	if existing, err := s.ledger.Get(ctx, id); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		rec     domain.BookingRecord
		recOK   bool
		profile domain.Profile
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.backend.LatestUserBooking(gCtx)
		if err != nil {
			s.logger.Error("latest booking fetch failed", "op", op, "error", err)
			return nil
		}
		rec, recOK = r, true
		return nil
	})
	g.Go(func() error {
		p, err := s.backend.UserProfile(gCtx)
		if err != nil {
			s.logger.Error("profile fetch failed", "op", op, "error", err)
			return nil
		}
		profile = p
		return nil
	})
	_ = g.Wait()

	if recOK && rec.PIN != 0 && int(rec.PIN) != h.PIN {
		s.logger.Warn("latest booking does not match handoff, ignoring it",
			"op", op, "confirmation_id", confirmationID)
		recOK = false
	}

	t := buildTicket(id, b, h, rec, recOK, profile, s.now())

	tasks, err := s.tasks(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ledger.Record(ctx, t, tasks); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			existing, gerr := s.ledger.Get(ctx, id)
			if gerr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

func buildTicket(
	id uuid.UUID,
	b domain.Booking,
	h domain.Handoff,
	rec domain.BookingRecord,
	recOK bool,
	profile domain.Profile,
	now time.Time,
) domain.Ticket {
	t := domain.Ticket{
		ID:            id,
		PIN:           h.PIN,
		City:          b.City,
		SlotNumbers:   b.SlotNumbers,
		VehicleNumber: b.VehicleNumber,
		Name:          profile.Name,
		Date:          b.Date,
		EntryTime:     b.EntryTime,
		ExitTime:      b.ExitTime,
		TotalAmount:   b.TotalAmount,
		CreatedAt:     now.UTC(),
	}

	if len(h.SlotNumbers) > 0 {
		t.SlotNumbers = h.SlotNumbers
	}
	if h.VehicleNumber != "" {
		t.VehicleNumber = h.VehicleNumber
	}

	if !recOK {
		return t
	}

	if len(rec.SlotNumbers) > 0 {
		t.SlotNumbers = []string(rec.SlotNumbers)
	}
	t.VehicleNumber = firstNonEmpty(rec.VehicleNumber, t.VehicleNumber)
	t.Name = firstNonEmpty(t.Name, rec.Name)
	t.City = firstNonEmpty(rec.City, t.City)
	t.Date = firstNonEmpty(rec.Date, t.Date)
	t.EntryTime = firstNonEmpty(rec.EntryTime, t.EntryTime)
	t.ExitTime = firstNonEmpty(rec.ExitTime, t.ExitTime)
	if rec.TotalAmount > 0 {
		t.TotalAmount = float64(rec.TotalAmount)
	}

	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (s *Service) tasks(ctx context.Context, t domain.Ticket) ([]domain.Task, error) {
	agg, err := dispatch.NewTask(ctx, domain.TaskConfirmAggregate, domain.AggregateConfirmation{
		SlotNumbers:   t.SlotNumbers,
		Name:          t.Name,
		Date:          t.Date,
		VehicleNumber: t.VehicleNumber,
		TotalAmount:   t.TotalAmount,
		City:          t.City,
	})
	if err != nil {
		return nil, err
	}

	tasks := []domain.Task{agg}

	if t.City == "" {
		s.logger.Warn("ticket has no city, slot occupancy not sent", "ticket_id", t.ID)
		return tasks, nil
	}

	occ, err := dispatch.NewTask(ctx, domain.TaskMarkOccupied, domain.SlotOccupancy{
		City:  t.City,
		Slots: t.SlotNumbers,
	})
	if err != nil {
		return nil, err
	}

	return append(tasks, occ), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "service.ticketing.Get"

	t, err := s.ledger.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// QRCode renders the ticket's QR payload as a PNG.
func (s *Service) QRCode(ctx context.Context, id uuid.UUID, size int) ([]byte, error) {
	const op = "service.ticketing.QRCode"

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	text, err := t.Payload().Encode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if size <= 0 {
		size = defaultQRPix
	}

	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return png, nil
}

// View is the human-readable ticket. Absent fields render as "N/A".
type View struct {
	ID            string `json:"id"`
	PIN           string `json:"pin"`
	Name          string `json:"name"`
	City          string `json:"city"`
	SlotNumbers   string `json:"slotNumbers"`
	VehicleNumber string `json:"vehicleno"`
	Date          string `json:"date"`
	EntryTime     string `json:"entryTime"`
	ExitTime      string `json:"exitTime"`
	TotalAmount   string `json:"totalAmount"`
	QRPayload     string `json:"qrPayload"`
}

func NewView(t *domain.Ticket) View {
	v := View{
		ID:            placeholder,
		PIN:           placeholder,
		Name:          placeholder,
		City:          placeholder,
		SlotNumbers:   placeholder,
		VehicleNumber: placeholder,
		Date:          placeholder,
		EntryTime:     placeholder,
		ExitTime:      placeholder,
		TotalAmount:   zeroAmount,
	}
	if t == nil {
		return v
	}

	v.ID = t.ID.String()
	if t.PIN != 0 {
		v.PIN = fmt.Sprintf("%d", t.PIN)
	}
	v.Name = orNA(t.Name)
	v.City = orNA(t.City)
	if len(t.SlotNumbers) > 0 {
		v.SlotNumbers = strings.Join(t.SlotNumbers, ", ")
	}
	v.VehicleNumber = orNA(t.VehicleNumber)
	v.Date = orNA(t.Date)
	v.EntryTime = orNA(t.EntryTime)
	v.ExitTime = orNA(t.ExitTime)
	v.TotalAmount = fmt.Sprintf("%.2f", t.TotalAmount)

	if text, err := t.Payload().Encode(); err == nil {
		v.QRPayload = text
	}

	return v
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
