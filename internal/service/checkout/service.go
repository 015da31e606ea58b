package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/repository"
	redisrepo "github.com/nammaspot/parkgo/internal/repository/redis"
)

const callbackLockTTL = 2 * time.Minute

type Backend interface {
	CreatePaymentOrder(ctx context.Context, amount int64) (domain.PaymentOrder, error)
	VerifyPayment(ctx context.Context, gatewayResponse json.RawMessage) error
	PersistBooking(ctx context.Context, b domain.Booking) (int, error)
}

type Store interface {
	Load(ctx context.Context, id string) (Confirmation, error)
	Save(ctx context.Context, id string, c Confirmation) error
}

type Idempotency interface {
	Begin(ctx context.Context, key string, lockTTL time.Duration) ([]byte, error)
	Complete(ctx context.Context, key string, payload []byte) error
	Abort(ctx context.Context, key string) error
}

type Config struct {
	KeyID        string
	MerchantName string
	Description  string
}

// Confirmation is the review-and-pay step for one booking draft. The PIN
// is drawn when the confirmation is opened, before any payment happens.
type Confirmation struct {
	ID         string          `json:"id"`
	Booking    domain.Booking  `json:"booking"`
	Processing bool            `json:"processing"`
	OrderID    string          `json:"orderId,omitempty"`
	Completed  bool            `json:"completed"`
	Handoff    *domain.Handoff `json:"handoff,omitempty"`
}

// CheckoutOptions configures the payment gateway widget.
type CheckoutOptions struct {
	Key         string `json:"key"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Service struct {
	backend Backend
	store   Store
	idem    Idempotency
	cfg     Config
	logger  *slog.Logger
	pin     func() (int, error)
}

func New(backend Backend, store Store, idem Idempotency, cfg Config, logger *slog.Logger) *Service {
	if cfg.Description == "" {
		cfg.Description = "Secure Parking Reservation"
	}

	return &Service{
		backend: backend,
		store:   store,
		idem:    idem,
		cfg:     cfg,
		logger:  logger,
		pin: func() (int, error) {
			return domain.GeneratePIN(nil)
		},
	}
}

// Open mounts a confirmation for draft and draws its PIN.
func (s *Service) Open(ctx context.Context, draft domain.Booking) (*Confirmation, error) {
	const op = "service.checkout.Open"

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidBooking, err)
	}

	pin, err := s.pin()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	draft.PIN = pin
	c := Confirmation{
		ID:      uuid.NewString(),
		Booking: draft,
	}

	if err := s.store.Save(ctx, c.ID, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Confirmation, error) {
	const op = "service.checkout.Get"

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// InitiatePayment creates a gateway order for the booking total and marks
// the confirmation as processing.
func (s *Service) InitiatePayment(ctx context.Context, id string) (CheckoutOptions, error) {
	const op = "service.checkout.InitiatePayment"

	c, err := s.load(ctx, id)
	if err != nil {
		return CheckoutOptions{}, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case c.Completed:
		return CheckoutOptions{}, fmt.Errorf("%s: %w", op, ErrAlreadyCompleted)
	case len(c.Booking.SlotNumbers) == 0:
		return CheckoutOptions{}, fmt.Errorf("%s: %w", op, ErrNoSlots)
	case c.Processing:
		return CheckoutOptions{}, fmt.Errorf("%s: %w", op, ErrPaymentInProgress)
	}

	c.Processing = true
	if err := s.store.Save(ctx, id, *c); err != nil {
		return CheckoutOptions{}, fmt.Errorf("%s: %w", op, err)
	}

	order, err := s.backend.CreatePaymentOrder(ctx, domain.MinorUnits(c.Booking.TotalAmount))
	if err != nil {
		s.stop(ctx, op, c, err)
		return CheckoutOptions{}, fmt.Errorf("%s: %w", op, ErrProcessingStopped)
	}

	c.OrderID = order.ID
	if err := s.store.Save(ctx, id, *c); err != nil {
		return CheckoutOptions{}, fmt.Errorf("%s: %w", op, err)
	}

	return CheckoutOptions{
		Key:         s.cfg.KeyID,
		Amount:      int64(order.Amount),
		Currency:    order.Currency,
		OrderID:     order.ID,
		Name:        s.cfg.MerchantName,
		Description: s.cfg.Description,
	}, nil
}

// PaymentSucceeded handles the gateway success callback: verify the
// payment, persist the booking, then hand off to ticket issuance. Repeated
// callbacks for the same confirmation return the first result.
func (s *Service) PaymentSucceeded(
	ctx context.Context,
	id string,
	gatewayResponse json.RawMessage,
) (domain.Handoff, error) {
	const op = "service.checkout.PaymentSucceeded"

	key := redisrepo.KeyIdemPaymentCallback(id)

	cached, err := s.idem.Begin(ctx, key, callbackLockTTL)
	if err != nil {
		if errors.Is(err, redisrepo.ErrInProgress) {
			return domain.Handoff{}, fmt.Errorf("%s: %w", op, ErrPaymentInProgress)
		}
		return domain.Handoff{}, fmt.Errorf("%s: %w", op, err)
	}
	if cached != nil {
		var h domain.Handoff
		if err := json.Unmarshal(cached, &h); err != nil {
			return domain.Handoff{}, fmt.Errorf("%s: %w", op, err)
		}
		return h, nil
	}

	h, err := s.completePayment(ctx, op, id, gatewayResponse)
	if err != nil {
		if aerr := s.idem.Abort(ctx, key); aerr != nil {
			s.logger.Error("idempotency abort failed", "op", op, "confirmation_id", id, "error", aerr)
		}
		return domain.Handoff{}, err
	}

	b, err := json.Marshal(h)
	if err == nil {
		err = s.idem.Complete(ctx, key, b)
	}
	if err != nil {
		s.logger.Error("idempotency save failed", "op", op, "confirmation_id", id, "error", err)
	}

	return h, nil
}

func (s *Service) completePayment(
	ctx context.Context,
	op, id string,
	gatewayResponse json.RawMessage,
) (domain.Handoff, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return domain.Handoff{}, fmt.Errorf("%s: %w", op, err)
	}

	if c.Completed && c.Handoff != nil {
		return *c.Handoff, nil
	}
	if c.OrderID == "" {
		return domain.Handoff{}, fmt.Errorf("%s: %w", op, ErrNoPaymentStarted)
	}

	if err := s.backend.VerifyPayment(ctx, gatewayResponse); err != nil {
		s.stop(ctx, op, c, err)
		return domain.Handoff{}, fmt.Errorf("%s: %w", op, ErrProcessingStopped)
	}

	serverPIN, err := s.backend.PersistBooking(ctx, c.Booking)
	if err != nil {
		s.stop(ctx, op, c, err)
		return domain.Handoff{}, fmt.Errorf("%s: %w", op, ErrProcessingStopped)
	}
	if serverPIN != 0 && serverPIN != c.Booking.PIN {
		s.logger.Info("backend assigned pin", "confirmation_id", id)
		c.Booking.PIN = serverPIN
	}

	h := domain.Handoff{
		PIN:           c.Booking.PIN,
		SlotNumbers:   c.Booking.SlotNumbers,
		VehicleNumber: c.Booking.VehicleNumber,
	}

	c.Processing = false
	c.Completed = true
	c.Handoff = &h

	if err := s.store.Save(ctx, id, *c); err != nil {
		// the booking is persisted remotely; the handoff is still valid
		s.logger.Error("confirmation save failed", "op", op, "confirmation_id", id, "error", err)
	}

	return h, nil
}

// Dismiss handles the gateway widget being closed without paying. It takes
// the payment callback claim first, so it never overwrites a confirmation
// the callback is completing or has completed.
func (s *Service) Dismiss(ctx context.Context, id string) (*Confirmation, error) {
	const op = "service.checkout.Dismiss"

	key := redisrepo.KeyIdemPaymentCallback(id)

	cached, err := s.idem.Begin(ctx, key, callbackLockTTL)
	switch {
	case errors.Is(err, redisrepo.ErrInProgress):
		s.logger.Info("dismiss ignored, payment callback in flight", "op", op, "confirmation_id", id)
		return s.Get(ctx, id)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	case cached != nil:
		return s.Get(ctx, id)
	}
	defer func() {
		if aerr := s.idem.Abort(ctx, key); aerr != nil {
			s.logger.Error("idempotency abort failed", "op", op, "confirmation_id", id, "error", aerr)
		}
	}()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !c.Processing || c.Completed {
		return c, nil
	}

	c.Processing = false
	if err := s.store.Save(ctx, id, *c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// stop logs the cause and clears the processing flag so the user can pay
// again from scratch.
func (s *Service) stop(ctx context.Context, op string, c *Confirmation, cause error) {
	s.logger.Error("payment processing stopped", "op", op, "confirmation_id", c.ID, "error", cause)

	c.Processing = false
	c.OrderID = ""
	if err := s.store.Save(ctx, c.ID, *c); err != nil {
		s.logger.Error("confirmation save failed", "op", op, "confirmation_id", c.ID, "error", err)
	}
}

func (s *Service) load(ctx context.Context, id string) (*Confirmation, error) {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConfirmationNotFound
		}
		return nil, err
	}
	return &c, nil
}
