package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/"})
}

func TestClient_SeatInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/getseat", r.URL.Path)
		assert.Equal(t, "Chennai", r.URL.Query().Get("city"))
		_, _ = io.WriteString(w, `{"seat":50,"slots":["003"],"price":"20"}`)
	})

	info, err := c.SeatInfo(context.Background(), "Chennai")
	require.NoError(t, err)
	require.NotNil(t, info.Seat)
	assert.Equal(t, domain.FlexInt(50), *info.Seat)
	assert.Equal(t, domain.FlexStrings{"003"}, info.Slots)
	assert.Equal(t, domain.FlexFloat(20), info.Price)
}

func TestClient_CreatePaymentOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payment/orders", r.URL.Path)
		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(36000), body["amount"])
		_, _ = io.WriteString(w, `{"data":{"id":"order_1","amount":36000,"currency":"INR"}}`)
	})

	order, err := c.CreatePaymentOrder(context.Background(), 36000)
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, domain.FlexInt(36000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
}

func TestClient_VerifyPayment_ForwardsRawBody(t *testing.T) {
	raw := json.RawMessage(`{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_1","razorpay_signature":"sig"}`)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, string(raw), string(b))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad signature"}`)
	})

	err := c.VerifyPayment(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.True(t, IsClientError(err))
}

func TestClient_PersistBooking(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		wantPIN int
	}{
		{name: "server pin", resp: `{"pin":"7731"}`, wantPIN: 7731},
		{name: "no pin", resp: `{"ok":true}`, wantPIN: 0},
		{name: "empty body", resp: ``, wantPIN: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var b domain.Booking
				require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
				assert.Equal(t, 4821, b.PIN)
				assert.Equal(t, "TN01", b.VehicleNumber)
				_, _ = io.WriteString(w, tt.resp)
			})

			pin, err := c.PersistBooking(context.Background(), domain.Booking{PIN: 4821, VehicleNumber: "TN01"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPIN, pin)
		})
	}
}

func TestClient_LatestUserBooking_OneOrMany(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		wantPIN int
		wantErr error
	}{
		{name: "object", resp: `{"pin":1111,"city":"Chennai"}`, wantPIN: 1111},
		{name: "array takes last", resp: `[{"pin":1111},{"pin":2222}]`, wantPIN: 2222},
		{name: "data envelope", resp: `{"data":[{"pin":3333}]}`, wantPIN: 3333},
		{name: "empty array", resp: `[]`, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.resp)
			})

			rec, err := c.LatestUserBooking(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.FlexInt(tt.wantPIN), rec.PIN)
		})
	}
}

func TestClient_IssuedPINs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"pin":4821,"slotNumbers":["003","006"]},{"pin":"1234"}]`)
	})

	recs, err := c.IssuedPINs(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.FlexInt(1234), recs[1].PIN)
}

func TestClient_NotificationNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"number":919876543210}`)
	})

	n, err := c.NotificationNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "919876543210", n)
}

func TestClient_ForwardsCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sid=abc", r.Header.Get("Cookie"))
		_, _ = io.WriteString(w, `{"name":"Asha","email":"asha@example.com"}`)
	})

	ctx := WithCredentials(context.Background(), "sid=abc")
	p, err := c.UserProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asha", p.Name)
}

func TestClient_OTP(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/reqOTP":
			assert.Equal(t, "op@example.com", body["email"])
			_, _ = io.WriteString(w, `{"message":"OTP Sent Successfully"}`)
		case "/verifyOTPnew":
			assert.Equal(t, "123456", body["otp"])
			_, _ = io.WriteString(w, `{"message":"OTP Verified Successfully"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	msg, err := c.RequestOTP(context.Background(), "op@example.com")
	require.NoError(t, err)
	assert.Equal(t, MessageOTPSent, msg)

	msg, err = c.VerifyOTP(context.Background(), "op@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, MessageOTPVerified, msg)
}

func TestClient_FreeSlots(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/freeupslots", r.URL.Path)
		var body domain.FreeSlots
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 4821, body.PIN)
		assert.Equal(t, []string{"003", "006"}, body.SeatsToFree)
	})

	err := c.FreeSlots(context.Background(), domain.FreeSlots{PIN: 4821, SeatsToFree: []string{"003", "006"}})
	require.NoError(t, err)
}
