package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/repository"
)

type SeatSource interface {
	SeatInfo(ctx context.Context, city string) (domain.SeatInfo, error)
}

type Store interface {
	Load(ctx context.Context, id string) (Selection, error)
	Save(ctx context.Context, id string, s Selection) error
	Delete(ctx context.Context, id string) error
}

// Details is a partial update of the booking form. Nil fields are kept.
type Details struct {
	Date          *string
	EntryTime     *string
	ExitTime      *string
	VehicleNumber *string
}

type Service struct {
	seats  SeatSource
	store  Store
	logger *slog.Logger
}

func New(seats SeatSource, store Store, logger *slog.Logger) *Service {
	return &Service{
		seats:  seats,
		store:  store,
		logger: logger,
	}
}

// Open starts a selection for city. A failed inventory fetch is not an
// error: the selection is returned in its load-error state and can be
// retried.
func (s *Service) Open(ctx context.Context, city string) (*Selection, error) {
	const op = "service.selection.Open"

	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrCityRequired)
	}

	sel := Selection{
		ID:   uuid.NewString(),
		City: city,
	}
	s.refresh(ctx, &sel)

	if err := s.store.Save(ctx, sel.ID, sel); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &sel, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Selection, error) {
	const op = "service.selection.Get"

	sel, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sel, nil
}

// Retry re-issues the inventory fetch for the selection's city.
func (s *Service) Retry(ctx context.Context, id string) (*Selection, error) {
	const op = "service.selection.Retry"

	return s.modify(ctx, op, id, func(sel *Selection) error {
		s.refresh(ctx, sel)
		return nil
	})
}

func (s *Service) Toggle(ctx context.Context, id string, index int) (*Selection, error) {
	const op = "service.selection.Toggle"

	return s.modify(ctx, op, id, func(sel *Selection) error {
		return sel.Toggle(index)
	})
}

func (s *Service) Update(ctx context.Context, id string, d Details) (*Selection, error) {
	const op = "service.selection.Update"

	for _, v := range []*string{d.EntryTime, d.ExitTime} {
		if v == nil || *v == "" {
			continue
		}
		if _, err := domain.ParseClock(*v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidTime)
		}
	}

	return s.modify(ctx, op, id, func(sel *Selection) error {
		if d.Date != nil {
			sel.Date = strings.TrimSpace(*d.Date)
		}
		if d.EntryTime != nil {
			sel.EntryTime = *d.EntryTime
		}
		if d.ExitTime != nil {
			sel.ExitTime = *d.ExitTime
		}
		if d.VehicleNumber != nil {
			sel.VehicleNumber = strings.TrimSpace(*d.VehicleNumber)
		}
		return nil
	})
}

// Proceed returns the booking draft for confirmation. The selection is
// kept so the user can navigate back.
func (s *Service) Proceed(ctx context.Context, id string) (domain.Booking, error) {
	const op = "service.selection.Proceed"

	sel, err := s.load(ctx, id)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	draft, err := sel.Draft()
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	return draft, nil
}

// Board returns the public slot layout for a city with no selection.
func (s *Service) Board(ctx context.Context, city string) (*Selection, error) {
	const op = "service.selection.Board"

	info, err := s.seats.SeatInfo(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sel := Selection{City: city}
	sel.Apply(info)
	if !sel.Loaded {
		return nil, fmt.Errorf("%s: %w", op, ErrNotLoaded)
	}

	return &sel, nil
}

func (s *Service) refresh(ctx context.Context, sel *Selection) {
	info, err := s.seats.SeatInfo(ctx, sel.City)
	if err != nil {
		s.logger.Error("seat info fetch failed", "op", "service.selection.refresh", "city", sel.City, "error", err)
		sel.Fail()
		return
	}

	sel.Apply(info)
	if !sel.Loaded {
		s.logger.Warn("seat info without seat count", "city", sel.City)
	}
}

func (s *Service) load(ctx context.Context, id string) (*Selection, error) {
	sel, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSelectionNotFound
		}
		return nil, err
	}
	return &sel, nil
}

func (s *Service) modify(ctx context.Context, op, id string, fn func(*Selection) error) (*Selection, error) {
	sel, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := fn(sel); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Save(ctx, id, *sel); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sel, nil
}
