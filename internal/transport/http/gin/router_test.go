package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/backend/mocks"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/repository"
	redisrepo "github.com/nammaspot/parkgo/internal/repository/redis"
	"github.com/nammaspot/parkgo/internal/service"
	"github.com/nammaspot/parkgo/internal/service/checkout"
	"github.com/nammaspot/parkgo/internal/service/selection"
	"github.com/nammaspot/parkgo/internal/service/ticketing"
	"github.com/nammaspot/parkgo/internal/service/verification"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type memLedger struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]domain.Ticket
}

func (l *memLedger) Record(ctx context.Context, t domain.Ticket, tasks []domain.Task) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tickets[t.ID]; ok {
		return repository.ErrConflict
	}
	l.tickets[t.ID] = t
	return nil
}

func (l *memLedger) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

type discardDispatcher struct{}

func (discardDispatcher) Dispatch(ctx context.Context, tasks ...domain.Task) {}

func newTestRouter(t *testing.T) (*gin.Engine, *mocks.MockAPI) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := redisrepo.New(rdb)
	api := new(mocks.MockAPI)

	svcs := &service.Services{
		Selection: selection.New(
			api,
			redisrepo.NewSessionStore[selection.Selection](cache, redisrepo.KeySelection, time.Minute),
			logger,
		),
		Checkout: checkout.New(
			api,
			redisrepo.NewSessionStore[checkout.Confirmation](cache, redisrepo.KeyConfirmation, time.Minute),
			redisrepo.NewIdempotencyStore(rdb, time.Hour),
			checkout.Config{KeyID: "rzp_test", MerchantName: "NammaSpot Parking"},
			logger,
		),
		Ticketing: ticketing.New(api, &memLedger{tickets: map[uuid.UUID]domain.Ticket{}}, logger),
		Verification: verification.New(
			api,
			redisrepo.NewSessionStore[verification.Session](cache, redisrepo.KeyVerification, time.Minute),
			discardDispatcher{},
			redisrepo.NewFixedWindowLimiter(rdb, "verify", 2, time.Minute),
			redisrepo.NewSlotsPubSub(rdb),
			logger,
		),
	}

	return NewRouter(svcs, nil, RouterConfig{OperatorJWTSecret: testSecret}, logger), api
}

func do(t *testing.T, r http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func operatorToken(t *testing.T, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, OperatorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "op-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingFlow(t *testing.T) {
	r, api := newTestRouter(t)

	seat := domain.FlexInt(50)
	api.On("SeatInfo", mock.Anything, "Chennai").
		Return(domain.SeatInfo{Seat: &seat, Slots: domain.FlexStrings{"001"}, Price: 20}, nil)

	w := do(t, r, http.MethodPost, "/selections", OpenSelectionRequest{City: "Chennai"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sel := decode[selection.View](t, w)
	assert.Len(t, sel.Slots, 50)

	for _, idx := range []string{"2", "5"} {
		w = do(t, r, http.MethodPost, "/selections/"+sel.ID+"/slots/"+idx+"/toggle", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// booked slot is a no-op
	w = do(t, r, http.MethodPost, "/selections/"+sel.ID+"/slots/0/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/selections/"+sel.ID+"/proceed", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	date, entry, exit, vehicle := "2026-10-18", "09:00", "18:00", "TN01AB1234"
	w = do(t, r, http.MethodPatch, "/selections/"+sel.ID, UpdateSelectionRequest{
		Date: &date, EntryTime: &entry, ExitTime: &exit, VehicleNumber: &vehicle,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sel = decode[selection.View](t, w)
	assert.Equal(t, []string{"003", "006"}, sel.SelectedSlots)
	assert.Equal(t, 360.0, sel.TotalAmount)
	assert.True(t, sel.CanProceed)

	w = do(t, r, http.MethodPost, "/selections/"+sel.ID+"/proceed", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conf := decode[checkout.Confirmation](t, w)
	assert.Equal(t, []string{"003", "006"}, conf.Booking.SlotNumbers)
	assert.Equal(t, 360.0, conf.Booking.TotalAmount)
	assert.Equal(t, "Chennai", conf.Booking.City)
	assert.GreaterOrEqual(t, conf.Booking.PIN, 1000)

	// ticket cannot be issued before payment
	w = do(t, r, http.MethodPost, "/tickets", IssueTicketRequest{ConfirmationID: conf.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	api.On("CreatePaymentOrder", mock.Anything, int64(36000)).
		Return(domain.PaymentOrder{ID: "order_1", Amount: 36000, Currency: "INR"}, nil).Once()
	w = do(t, r, http.MethodPost, "/confirmations/"+conf.ID+"/payment", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	opts := decode[checkout.CheckoutOptions](t, w)
	assert.Equal(t, "order_1", opts.OrderID)
	assert.Equal(t, "rzp_test", opts.Key)

	api.On("VerifyPayment", mock.Anything, mock.Anything).Return(nil).Once()
	api.On("PersistBooking", mock.Anything, mock.Anything).Return(0, nil).Once()
	w = do(t, r, http.MethodPost, "/confirmations/"+conf.ID+"/payment/callback",
		map[string]string{"razorpay_payment_id": "pay_1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cb := decode[PaymentCallbackResponse](t, w)
	require.NotNil(t, cb.Confirmation.Handoff)
	assert.Equal(t, conf.Booking.PIN, cb.Confirmation.Handoff.PIN)

	api.On("LatestUserBooking", mock.Anything).Return(domain.BookingRecord{}, errors.New("down"))
	api.On("UserProfile", mock.Anything).Return(domain.Profile{Name: "Asha"}, nil)
	w = do(t, r, http.MethodPost, "/tickets", IssueTicketRequest{ConfirmationID: conf.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[ticketing.View](t, w)
	assert.Equal(t, cb.TicketID, view.ID)
	assert.Equal(t, "003, 006", view.SlotNumbers)
	assert.Equal(t, "Asha", view.Name)

	w = do(t, r, http.MethodGet, "/tickets/"+view.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = do(t, r, http.MethodGet, "/tickets/"+view.ID, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = do(t, r, http.MethodGet, "/tickets/"+view.ID+"/qr.png?size=128", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/selections/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "selection not found", decode[ErrorResponse](t, w).Error)

	w = do(t, r, http.MethodPost, "/selections", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/tickets/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/tickets/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/confirmations/nope/payment/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperatorAuth(t *testing.T) {
	r, api := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/verifications", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/verifications", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/verifications", nil, "Authorization", operatorToken(t, "customer"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	api.On("IssuedPINs", mock.Anything).Return([]domain.BookingRecord{{PIN: 4821, City: "Chennai"}}, nil)
	api.On("NotificationNumber", mock.Anything).Return("919876543210", nil)
	api.On("UserProfile", mock.Anything).Return(domain.Profile{Email: "op@example.com"}, nil)

	auth := operatorToken(t, "operator")
	w = do(t, r, http.MethodPost, "/verifications", nil, "Authorization", auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sess := decode[verification.View](t, w)
	assert.Equal(t, verification.StateIdle, sess.State)
	assert.Equal(t, 1, sess.Records)

	w = do(t, r, http.MethodPut, "/verifications/"+sess.ID+"/pin", PINRequest{PIN: "4821"}, "Authorization", auth)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/verifications/"+sess.ID+"/verify", nil, "Authorization", auth)
	require.Equal(t, http.StatusOK, w.Code)
	sess = decode[verification.View](t, w)
	assert.Equal(t, verification.StateMatched, sess.State)
	require.NotNil(t, sess.Match)
	assert.Equal(t, "Chennai", sess.Match.City)

	w = do(t, r, http.MethodPost, "/verifications/"+sess.ID+"/out", nil, "Authorization", auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// limiter allows two verifies per minute
	do(t, r, http.MethodPost, "/verifications/"+sess.ID+"/verify", nil, "Authorization", auth)
	w = do(t, r, http.MethodPost, "/verifications/"+sess.ID+"/verify", nil, "Authorization", auth)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = do(t, r, http.MethodDelete, "/verifications/"+sess.ID, nil, "Authorization", auth)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestEtagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"a", "b"`, `"b"`))
	assert.True(t, etagMatches(`W/"b"`, `"b"`))
	assert.True(t, etagMatches(`*`, `"b"`))
	assert.False(t, etagMatches(``, `"b"`))
}
