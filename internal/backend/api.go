package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nammaspot/parkgo/internal/domain"
)

const (
	MessageOTPSent     = "OTP Sent Successfully"
	MessageOTPVerified = "OTP Verified Successfully"
)

// API is the remote parking backend.
type API interface {
	SeatInfo(ctx context.Context, city string) (domain.SeatInfo, error)
	CreatePaymentOrder(ctx context.Context, amount int64) (domain.PaymentOrder, error)
	VerifyPayment(ctx context.Context, gatewayResponse json.RawMessage) error
	PersistBooking(ctx context.Context, b domain.Booking) (int, error)
	LatestUserBooking(ctx context.Context) (domain.BookingRecord, error)
	UserProfile(ctx context.Context) (domain.Profile, error)
	ConfirmAggregate(ctx context.Context, in domain.AggregateConfirmation) error
	MarkSlotsOccupied(ctx context.Context, in domain.SlotOccupancy) error
	IssuedPINs(ctx context.Context) ([]domain.BookingRecord, error)
	NotificationNumber(ctx context.Context) (string, error)
	RequestOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	FreeSlots(ctx context.Context, in domain.FreeSlots) error
	PostNotice(ctx context.Context, in domain.Notice) error
	SendNotification(ctx context.Context, in domain.Notification) error
}

var _ API = (*Client)(nil)

func (c *Client) SeatInfo(ctx context.Context, city string) (domain.SeatInfo, error) {
	const op = "backend.SeatInfo"

	var out domain.SeatInfo
	if err := c.do(ctx, http.MethodGet, "/getseat", url.Values{"city": {city}}, nil, &out); err != nil {
		return domain.SeatInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) CreatePaymentOrder(ctx context.Context, amount int64) (domain.PaymentOrder, error) {
	const op = "backend.CreatePaymentOrder"

	var out struct {
		Data domain.PaymentOrder `json:"data"`
	}
	body := map[string]int64{"amount": amount}
	if err := c.do(ctx, http.MethodPost, "/api/payment/orders", nil, body, &out); err != nil {
		return domain.PaymentOrder{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.Data.ID == "" {
		return domain.PaymentOrder{}, fmt.Errorf("%s: empty order id", op)
	}

	return out.Data, nil
}

func (c *Client) VerifyPayment(ctx context.Context, gatewayResponse json.RawMessage) error {
	const op = "backend.VerifyPayment"

	if len(gatewayResponse) == 0 {
		gatewayResponse = json.RawMessage("{}")
	}

	if err := c.do(ctx, http.MethodPost, "/api/payment/verify", nil, gatewayResponse, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// PersistBooking stores the booking. The returned pin is non-zero only when
// the backend assigns one.
func (c *Client) PersistBooking(ctx context.Context, b domain.Booking) (int, error) {
	const op = "backend.PersistBooking"

	var out struct {
		PIN domain.FlexInt `json:"pin"`
	}
	if err := c.do(ctx, http.MethodPost, "/adddetails", nil, b, &out); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return int(out.PIN), nil
}

func (c *Client) LatestUserBooking(ctx context.Context) (domain.BookingRecord, error) {
	const op = "backend.LatestUserBooking"

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/getuserconfirmdata", nil, nil, &raw); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	items, err := decodeOneOrMany[domain.BookingRecord](raw)
	if err != nil {
		return domain.BookingRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	rec, ok := last(items)
	if !ok {
		return domain.BookingRecord{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return rec, nil
}

func (c *Client) UserProfile(ctx context.Context) (domain.Profile, error) {
	const op = "backend.UserProfile"

	var out domain.Profile
	if err := c.do(ctx, http.MethodGet, "/getname", nil, nil, &out); err != nil {
		return domain.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) ConfirmAggregate(ctx context.Context, in domain.AggregateConfirmation) error {
	const op = "backend.ConfirmAggregate"

	if err := c.do(ctx, http.MethodPost, "/postconfirmbooking", nil, in, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) MarkSlotsOccupied(ctx context.Context, in domain.SlotOccupancy) error {
	const op = "backend.MarkSlotsOccupied"

	if err := c.do(ctx, http.MethodPost, "/updatepins", nil, in, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) IssuedPINs(ctx context.Context) ([]domain.BookingRecord, error) {
	const op = "backend.IssuedPINs"

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/getpins", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := decodeOneOrMany[domain.BookingRecord](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (c *Client) NotificationNumber(ctx context.Context) (string, error) {
	const op = "backend.NotificationNumber"

	var out struct {
		Number json.RawMessage `json:"number"`
	}
	if err := c.do(ctx, http.MethodGet, "/getnumber", nil, nil, &out); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return scalarString(out.Number), nil
}

func (c *Client) RequestOTP(ctx context.Context, email string) (string, error) {
	const op = "backend.RequestOTP"

	var out struct {
		Message string `json:"message"`
	}
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/reqOTP", nil, body, &out); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return out.Message, nil
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	const op = "backend.VerifyOTP"

	var out struct {
		Message string `json:"message"`
	}
	body := map[string]string{"email": email, "otp": otp}
	if err := c.do(ctx, http.MethodPost, "/verifyOTPnew", nil, body, &out); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return out.Message, nil
}

func (c *Client) FreeSlots(ctx context.Context, in domain.FreeSlots) error {
	const op = "backend.FreeSlots"

	if err := c.do(ctx, http.MethodPost, "/freeupslots", nil, in, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) PostNotice(ctx context.Context, in domain.Notice) error {
	const op = "backend.PostNotice"

	if err := c.do(ctx, http.MethodPost, "/putnoti", nil, in, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) SendNotification(ctx context.Context, in domain.Notification) error {
	const op = "backend.SendNotification"

	if err := c.do(ctx, http.MethodPost, "/sendNotification", nil, in, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
