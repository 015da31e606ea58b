package mocks

import (
	"context"
	"encoding/json"

	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockAPI is a mock implementation of backend.API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SeatInfo(ctx context.Context, city string) (domain.SeatInfo, error) {
	args := m.Called(ctx, city)
	return args.Get(0).(domain.SeatInfo), args.Error(1)
}

func (m *MockAPI) CreatePaymentOrder(ctx context.Context, amount int64) (domain.PaymentOrder, error) {
	args := m.Called(ctx, amount)
	return args.Get(0).(domain.PaymentOrder), args.Error(1)
}

func (m *MockAPI) VerifyPayment(ctx context.Context, gatewayResponse json.RawMessage) error {
	args := m.Called(ctx, gatewayResponse)
	return args.Error(0)
}

func (m *MockAPI) PersistBooking(ctx context.Context, b domain.Booking) (int, error) {
	args := m.Called(ctx, b)
	return args.Int(0), args.Error(1)
}

func (m *MockAPI) LatestUserBooking(ctx context.Context) (domain.BookingRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BookingRecord), args.Error(1)
}

func (m *MockAPI) UserProfile(ctx context.Context) (domain.Profile, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Profile), args.Error(1)
}

func (m *MockAPI) ConfirmAggregate(ctx context.Context, in domain.AggregateConfirmation) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAPI) MarkSlotsOccupied(ctx context.Context, in domain.SlotOccupancy) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAPI) IssuedPINs(ctx context.Context) ([]domain.BookingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BookingRecord), args.Error(1)
}

func (m *MockAPI) NotificationNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) RequestOTP(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	args := m.Called(ctx, email, otp)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) FreeSlots(ctx context.Context, in domain.FreeSlots) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAPI) PostNotice(ctx context.Context, in domain.Notice) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAPI) SendNotification(ctx context.Context, in domain.Notification) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}
