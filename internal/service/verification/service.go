package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/backend"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/repository"
	"github.com/nammaspot/parkgo/internal/service/dispatch"
	"golang.org/x/sync/errgroup"
)

type Backend interface {
	IssuedPINs(ctx context.Context) ([]domain.BookingRecord, error)
	NotificationNumber(ctx context.Context) (string, error)
	UserProfile(ctx context.Context) (domain.Profile, error)
	RequestOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	FreeSlots(ctx context.Context, in domain.FreeSlots) error
}

type Store interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, id string, s Session) error
	Delete(ctx context.Context, id string) error
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// SlotsNotifier announces that a city's inventory changed.
type SlotsNotifier interface {
	PublishSlotsChanged(ctx context.Context, city string) error
}

type Service struct {
	backend  Backend
	store    Store
	effects  dispatch.Dispatcher
	limiter  Limiter
	notifier SlotsNotifier
	logger   *slog.Logger
}

// New builds the service. limiter and notifier may be nil.
func New(
	backend Backend,
	store Store,
	effects dispatch.Dispatcher,
	limiter Limiter,
	notifier SlotsNotifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		backend:  backend,
		store:    store,
		effects:  effects,
		limiter:  limiter,
		notifier: notifier,
		logger:   logger,
	}
}

// Open starts a verification session for an operator. The issued-PIN list,
// the notification number and the operator email are loaded once; a failed
// load is recorded on the session rather than returned.
func (s *Service) Open(ctx context.Context, operatorID string) (*Session, error) {
	const op = "service.verification.Open"

	if strings.TrimSpace(operatorID) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrOperatorRequired)
	}

	sess := Session{
		ID:          uuid.NewString(),
		OperatorID:  operatorID,
		State:       StateIdle,
		Records:     []domain.BookingRecord{},
		SeatsToFree: []string{},
	}

	var (
		records []domain.BookingRecord
		number  string
		profile domain.Profile
		errs    [3]error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, errs[0] = s.backend.IssuedPINs(gCtx)
		return nil
	})
	g.Go(func() error {
		number, errs[1] = s.backend.NotificationNumber(gCtx)
		return nil
	})
	g.Go(func() error {
		profile, errs[2] = s.backend.UserProfile(gCtx)
		return nil
	})
	_ = g.Wait()

	if errs[0] != nil {
		s.logger.Error("issued pins fetch failed", "op", op, "error", errs[0])
		sess.LoadErrors = append(sess.LoadErrors, msgLoadingError)
	} else if records != nil {
		sess.Records = records
	}
	if errs[1] != nil {
		s.logger.Error("notification number fetch failed", "op", op, "error", errs[1])
		sess.LoadErrors = append(sess.LoadErrors, "Error loading latest number")
	}
	if errs[2] != nil {
		s.logger.Error("operator profile fetch failed", "op", op, "error", errs[2])
		sess.LoadErrors = append(sess.LoadErrors, "Error loading email")
	}
	sess.Number = number
	sess.Email = profile.Email

	if err := s.store.Save(ctx, sess.ID, sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	const op = "service.verification.Get"

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sess, nil
}

// Scan applies scanned QR text and verifies the decoded token.
func (s *Service) Scan(ctx context.Context, id, text string) (*Session, error) {
	const op = "service.verification.Scan"

	return s.modify(ctx, op, id, func(sess *Session) error {
		if !sess.Scan(text) {
			s.logger.Warn("invalid qr payload scanned", "session_id", id)
			return nil
		}
		if err := s.allow(ctx, sess.OperatorID); err != nil {
			return err
		}
		sess.Verify()
		return nil
	})
}

func (s *Service) EnterPIN(ctx context.Context, id, text string) (*Session, error) {
	const op = "service.verification.EnterPIN"

	return s.modify(ctx, op, id, func(sess *Session) error {
		sess.EnterPIN(text)
		return nil
	})
}

func (s *Service) Verify(ctx context.Context, id string) (*Session, error) {
	const op = "service.verification.Verify"

	return s.modify(ctx, op, id, func(sess *Session) error {
		if err := s.allow(ctx, sess.OperatorID); err != nil {
			return err
		}
		sess.Verify()
		return nil
	})
}

// SetSeatsToFree stores the operator's comma-separated slot list. It is
// not checked against the matched booking.
func (s *Service) SetSeatsToFree(ctx context.Context, id, input string) (*Session, error) {
	const op = "service.verification.SetSeatsToFree"

	return s.modify(ctx, op, id, func(sess *Session) error {
		sess.SetSeatsToFree(input)
		return nil
	})
}

// In notifies the user that the vehicle entered. It needs no match and
// does not change state.
func (s *Service) In(ctx context.Context, id string) (*Session, error) {
	const op = "service.verification.In"

	return s.modify(ctx, op, id, func(sess *Session) error {
		if err := s.notify(ctx, sess, noticeIn); err != nil {
			return err
		}
		sess.Message = noticeIn
		return nil
	})
}

// Out starts the exit flow. Without a verified OTP it requests one to the
// operator email; once verified it repeats the exit.
func (s *Service) Out(ctx context.Context, id string) (*Session, error) {
	const op = "service.verification.Out"

	return s.modify(ctx, op, id, func(sess *Session) error {
		if sess.Matched == nil {
			sess.Message = msgPINNotFound
			return ErrNoMatch
		}
		if len(sess.SeatsToFree) == 0 {
			return ErrNoSeatsToFree
		}

		if sess.OTPVerified {
			return s.exit(ctx, sess)
		}

		msg, err := s.backend.RequestOTP(ctx, sess.Email)
		if err != nil {
			sess.Message = "Failed to request OTP. Please try again later."
			return err
		}
		sess.Message = msg
		if msg != backend.MessageOTPSent {
			return ErrOTPNotSent
		}

		sess.State = StateOTPPending
		return nil
	})
}

// SubmitOTP verifies the operator's OTP and, on success, completes the exit.
// A wrong OTP leaves the session waiting for another attempt.
func (s *Service) SubmitOTP(ctx context.Context, id, otp string) (*Session, error) {
	const op = "service.verification.SubmitOTP"

	return s.modify(ctx, op, id, func(sess *Session) error {
		if sess.State != StateOTPPending {
			return ErrOTPNotRequested
		}

		msg, err := s.backend.VerifyOTP(ctx, sess.Email, strings.TrimSpace(otp))
		if err != nil {
			return err
		}
		if msg != backend.MessageOTPVerified {
			sess.Message = msgInvalidOTP
			return ErrInvalidOTP
		}

		sess.OTPVerified = true
		return s.exit(ctx, sess)
	})
}

func (s *Service) Close(ctx context.Context, id string) error {
	const op = "service.verification.Close"

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// exit sends the out notices and frees the entered slots. The notices are
// not withdrawn if freeing fails.
func (s *Service) exit(ctx context.Context, sess *Session) error {
	const op = "service.verification.exit"

	if err := s.notify(ctx, sess, noticeOut); err != nil {
		return err
	}

	pin, _ := sess.MatchedPIN()
	err := s.backend.FreeSlots(ctx, domain.FreeSlots{
		PIN:         pin,
		SeatsToFree: sess.SeatsToFree,
	})
	if err != nil {
		s.logger.Error("free slots failed", "op", op, "pin", pin, "error", err)
		sess.Message = msgFreeFailed
		return fmt.Errorf("%w: %w", ErrFreeSlotsFailed, err)
	}

	sess.State = StateOutConfirmed
	sess.Message = msgSlotsFreed

	if s.notifier != nil && sess.Matched.City != "" {
		if err := s.notifier.PublishSlotsChanged(ctx, sess.Matched.City); err != nil {
			s.logger.Warn("publish slots changed failed", "op", op, "city", sess.Matched.City, "error", err)
		}
	}

	return nil
}

func (s *Service) notify(ctx context.Context, sess *Session, text string) error {
	notice, err := dispatch.NewTask(ctx, domain.TaskPostNotice, domain.Notice{Noti: text})
	if err != nil {
		return err
	}
	push, err := dispatch.NewTask(ctx, domain.TaskSendNotification, domain.Notification{
		Number:  sess.Number,
		Message: text,
	})
	if err != nil {
		return err
	}

	s.effects.Dispatch(ctx, notice, push)
	return nil
}

func (s *Service) allow(ctx context.Context, operatorID string) error {
	if s.limiter == nil {
		return nil
	}

	ok, retry, err := s.limiter.Allow(ctx, operatorID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", "op", "service.verification.allow", "error", err)
		return nil
	}
	if !ok {
		return &RateLimitError{RetryAfter: retry}
	}

	return nil
}

// RateLimitError reports how long the operator must wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// modify saves the session even when fn fails, so messages and state set
// before the failure are kept.
func (s *Service) modify(ctx context.Context, op, id string, fn func(*Session) error) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fnErr := fn(sess)

	if err := s.store.Save(ctx, id, *sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if fnErr != nil {
		return sess, fmt.Errorf("%s: %w", op, fnErr)
	}

	return sess, nil
}
