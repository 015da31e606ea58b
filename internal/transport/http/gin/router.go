package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/backend"
	"github.com/nammaspot/parkgo/internal/service"
	"github.com/nammaspot/parkgo/internal/service/checkout"
	"github.com/nammaspot/parkgo/internal/service/selection"
	"github.com/nammaspot/parkgo/internal/service/ticketing"
	"github.com/nammaspot/parkgo/internal/service/verification"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

type RouterConfig struct {
	OperatorJWTSecret string
	CORSOrigins       []string
}

func NewRouter(
	svcs *service.Services,
	hub *SlotHub,
	cfg RouterConfig,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS(cfg.CORSOrigins), ForwardCredentials())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if hub != nil {
		r.GET("/ws/cities/:city/slots", handleSlotsWS(hub))
	}

	sel := r.Group("/selections")
	{
		sel.POST("", handleOpenSelection(svcs))
		sel.GET("/:id", handleGetSelection(svcs))
		sel.POST("/:id/retry", handleRetrySelection(svcs))
		sel.POST("/:id/slots/:index/toggle", handleToggleSlot(svcs))
		sel.PATCH("/:id", handleUpdateSelection(svcs))
		sel.POST("/:id/proceed", handleProceed(svcs))
	}

	conf := r.Group("/confirmations")
	{
		conf.GET("/:id", handleGetConfirmation(svcs))
		conf.POST("/:id/payment", handleInitiatePayment(svcs))
		conf.POST("/:id/payment/callback", handlePaymentCallback(svcs))
		conf.POST("/:id/payment/dismiss", handleDismissPayment(svcs))
	}

	tickets := r.Group("/tickets")
	{
		tickets.POST("", handleIssueTicket(svcs))
		tickets.GET("/:id", handleGetTicket(svcs))
		tickets.GET("/:id/qr.png", handleTicketQR(svcs))
	}

	ver := r.Group("/verifications", OperatorAuth(cfg.OperatorJWTSecret, logger))
	{
		ver.POST("", handleOpenVerification(svcs))
		ver.GET("/:id", handleGetVerification(svcs))
		ver.POST("/:id/scan", handleScan(svcs))
		ver.PUT("/:id/pin", handleEnterPIN(svcs))
		ver.PUT("/:id/seats", handleSetSeats(svcs))
		ver.POST("/:id/verify", handleVerify(svcs))
		ver.POST("/:id/in", handleIn(svcs))
		ver.POST("/:id/out", handleOut(svcs))
		ver.POST("/:id/otp", handleSubmitOTP(svcs))
		ver.DELETE("/:id", handleCloseVerification(svcs))
	}

	return r
}

// --- Selection ---

// @Summary  Start slot selection for a city
// @Param    req body  OpenSelectionRequest true "payload"
// @Success  201 {object} selection.View
// @Failure  400 {object} ErrorResponse
// @Router   /selections [post]
func handleOpenSelection(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OpenSelectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sel, err := svcs.Selection.Open(c.Request.Context(), req.City)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, sel.View())
	}
}

// @Summary  Get selection
// @Param    id  path  string  true  "Selection ID"
// @Success  200 {object} selection.View
// @Failure  404 {object} ErrorResponse
// @Router   /selections/{id} [get]
func handleGetSelection(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sel, err := svcs.Selection.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sel.View())
	}
}

// @Summary  Retry loading slots
// @Param    id  path  string  true  "Selection ID"
// @Success  200 {object} selection.View
// @Router   /selections/{id}/retry [post]
func handleRetrySelection(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sel, err := svcs.Selection.Retry(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sel.View())
	}
}

// @Summary  Toggle a slot
// @Param    id     path  string  true  "Selection ID"
// @Param    index  path  int     true  "Zero-based slot index"
// @Success  200 {object} selection.View
// @Failure  400 {object} ErrorResponse
// @Router   /selections/{id}/slots/{index}/toggle [post]
func handleToggleSlot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		index, ok := parseIntParam(c, "index")
		if !ok {
			return
		}
		sel, err := svcs.Selection.Toggle(c.Request.Context(), c.Param("id"), index)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sel.View())
	}
}

// @Summary  Update date, times and vehicle
// @Param    id   path  string                  true  "Selection ID"
// @Param    req  body  UpdateSelectionRequest  true  "payload"
// @Success  200 {object} selection.View
// @Failure  400 {object} ErrorResponse
// @Router   /selections/{id} [patch]
func handleUpdateSelection(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSelectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sel, err := svcs.Selection.Update(c.Request.Context(), c.Param("id"), selection.Details{
			Date:          req.Date,
			EntryTime:     req.EntryTime,
			ExitTime:      req.ExitTime,
			VehicleNumber: req.VehicleNumber,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sel.View())
	}
}

// @Summary  Proceed to confirmation
// @Param    id  path  string  true  "Selection ID"
// @Success  201 {object} checkout.Confirmation
// @Failure  422 {object} ErrorResponse
// @Router   /selections/{id}/proceed [post]
func handleProceed(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		draft, err := svcs.Selection.Proceed(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		conf, err := svcs.Checkout.Open(c.Request.Context(), draft)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, conf)
	}
}

// --- Confirmation & payment ---

// @Summary  Get confirmation
// @Param    id  path  string  true  "Confirmation ID"
// @Success  200 {object} checkout.Confirmation
// @Failure  404 {object} ErrorResponse
// @Router   /confirmations/{id} [get]
func handleGetConfirmation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := svcs.Checkout.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, conf)
	}
}

// @Summary  Create payment order
// @Param    id  path  string  true  "Confirmation ID"
// @Success  200 {object} checkout.CheckoutOptions
// @Failure  409 {object} ErrorResponse
// @Failure  502 {object} ErrorResponse
// @Router   /confirmations/{id}/payment [post]
func handleInitiatePayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, err := svcs.Checkout.InitiatePayment(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, opts)
	}
}

// @Summary  Payment gateway success callback
// @Param    id   path  string  true  "Confirmation ID"
// @Param    req  body  object  true  "gateway response, forwarded as is"
// @Success  200 {object} PaymentCallbackResponse
// @Failure  409 {object} ErrorResponse
// @Failure  502 {object} ErrorResponse
// @Router   /confirmations/{id}/payment/callback [post]
func handlePaymentCallback(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		raw, err := c.GetRawData()
		if err != nil {
			badRequest(c, "unreadable body")
			return
		}
		if _, err := svcs.Checkout.PaymentSucceeded(c.Request.Context(), id, raw); err != nil {
			respondErr(c, err)
			return
		}
		conf, err := svcs.Checkout.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, PaymentCallbackResponse{
			Confirmation: conf,
			TicketID:     ticketing.TicketID(id).String(),
		})
	}
}

// @Summary  Payment widget dismissed
// @Param    id  path  string  true  "Confirmation ID"
// @Success  200 {object} checkout.Confirmation
// @Router   /confirmations/{id}/payment/dismiss [post]
func handleDismissPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := svcs.Checkout.Dismiss(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, conf)
	}
}

// --- Tickets ---

// @Summary  Issue the ticket for a paid confirmation
// @Param    req body  IssueTicketRequest true "payload"
// @Success  201 {object} ticketing.View
// @Failure  409 {object} ErrorResponse
// @Router   /tickets [post]
func handleIssueTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IssueTicketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		conf, err := svcs.Checkout.Get(c.Request.Context(), req.ConfirmationID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !conf.Completed || conf.Handoff == nil {
			respondErr(c, ticketing.ErrNoHandoff)
			return
		}
		t, err := svcs.Ticketing.Issue(c.Request.Context(), conf.ID, conf.Booking, *conf.Handoff)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, ticketing.NewView(t))
	}
}

// @Summary  Get ticket
// @Param    id  path  string  true  "Ticket ID (uuid)"
// @Success  200 {object} ticketing.View
// @Success  304
// @Failure  404 {object} ErrorResponse
// @Router   /tickets/{id} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		t, err := svcs.Ticketing.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, ticketing.NewView(t), ticketCacheControl)
	}
}

// @Summary  Download ticket QR code
// @Param    id    path   string  true   "Ticket ID (uuid)"
// @Param    size  query  int     false  "image size in pixels"
// @Produce  png
// @Success  200
// @Failure  404 {object} ErrorResponse
// @Router   /tickets/{id}/qr.png [get]
func handleTicketQR(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		size := clamp(parseIntDefault(c.Query("size"), defaultQRSize), minQRSize, maxQRSize)

		png, err := svcs.Ticketing.QRCode(c.Request.Context(), id, size)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="parking-ticket-`+id.String()+`.png"`)
		writeWithCache(c, http.StatusOK, "image/png", png, ticketCacheControl)
	}
}

// --- Verification (operator) ---

// @Summary  Open a verification desk
// @Security OperatorJWT
// @Success  201 {object} verification.View
// @Router   /verifications [post]
func handleOpenVerification(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svcs.Verification.Open(c.Request.Context(), operatorID(c))
		respondSession(c, http.StatusCreated, sess, err)
	}
}

// @Summary  Get verification desk
// @Security OperatorJWT
// @Param    id  path  string  true  "Session ID"
// @Success  200 {object} verification.View
// @Router   /verifications/{id} [get]
func handleGetVerification(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svcs.Verification.Get(c.Request.Context(), c.Param("id"))
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Submit scanned QR text
// @Security OperatorJWT
// @Param    id   path  string       true  "Session ID"
// @Param    req  body  ScanRequest  true  "payload"
// @Success  200 {object} verification.View
// @Failure  429 {object} VerificationErrorResponse
// @Router   /verifications/{id}/scan [post]
func handleScan(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sess, err := svcs.Verification.Scan(c.Request.Context(), c.Param("id"), req.Text)
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Enter a PIN manually
// @Security OperatorJWT
// @Param    id   path  string      true  "Session ID"
// @Param    req  body  PINRequest  true  "payload"
// @Success  200 {object} verification.View
// @Router   /verifications/{id}/pin [put]
func handleEnterPIN(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PINRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sess, err := svcs.Verification.EnterPIN(c.Request.Context(), c.Param("id"), req.PIN)
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Set the slots to free on exit
// @Security OperatorJWT
// @Param    id   path  string        true  "Session ID"
// @Param    req  body  SeatsRequest  true  "comma-separated slot labels"
// @Success  200 {object} verification.View
// @Router   /verifications/{id}/seats [put]
func handleSetSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sess, err := svcs.Verification.SetSeatsToFree(c.Request.Context(), c.Param("id"), req.SeatsToFree)
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Verify the active PIN
// @Security OperatorJWT
// @Param    id  path  string  true  "Session ID"
// @Success  200 {object} verification.View
// @Failure  429 {object} VerificationErrorResponse
// @Router   /verifications/{id}/verify [post]
func handleVerify(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svcs.Verification.Verify(c.Request.Context(), c.Param("id"))
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Vehicle in
// @Security OperatorJWT
// @Param    id  path  string  true  "Session ID"
// @Success  200 {object} verification.View
// @Router   /verifications/{id}/in [post]
func handleIn(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svcs.Verification.In(c.Request.Context(), c.Param("id"))
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Vehicle out (requests an OTP first)
// @Security OperatorJWT
// @Param    id  path  string  true  "Session ID"
// @Success  200 {object} verification.View
// @Failure  409 {object} VerificationErrorResponse
// @Router   /verifications/{id}/out [post]
func handleOut(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svcs.Verification.Out(c.Request.Context(), c.Param("id"))
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Submit the operator OTP and complete the exit
// @Security OperatorJWT
// @Param    id   path  string      true  "Session ID"
// @Param    req  body  OTPRequest  true  "payload"
// @Success  200 {object} verification.View
// @Failure  422 {object} VerificationErrorResponse
// @Failure  502 {object} VerificationErrorResponse
// @Router   /verifications/{id}/otp [post]
func handleSubmitOTP(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sess, err := svcs.Verification.SubmitOTP(c.Request.Context(), c.Param("id"), req.OTP)
		respondSession(c, http.StatusOK, sess, err)
	}
}

// @Summary  Close verification desk
// @Security OperatorJWT
// @Param    id  path  string  true  "Session ID"
// @Success  204
// @Router   /verifications/{id} [delete]
func handleCloseVerification(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Verification.Close(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

func parseIntParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondSession(c *gin.Context, status int, sess *verification.Session, err error) {
	if err == nil {
		c.JSON(status, sess.View())
		return
	}

	code, msg := errStatus(c, err)
	resp := VerificationErrorResponse{Error: msg}
	if sess != nil {
		v := sess.View()
		resp.Session = &v
	}
	c.JSON(code, resp)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	code, msg := errStatus(c, err)
	c.JSON(code, ErrorResponse{Error: msg})
}

// errStatus maps service errors to a status code and a client message.
// Unknown errors are recorded on the context for the request log.
func errStatus(c *gin.Context, err error) (int, string) {
	var rl *verification.RateLimitError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())+1))
		return http.StatusTooManyRequests, verification.ErrRateLimited.Error()
	}

	for _, m := range errorMap {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}

	_ = c.Error(err)

	var se *backend.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway, "parking backend request failed"
	}

	return http.StatusInternalServerError, "internal error"
}

var errorMap = []struct {
	err    error
	status int
}{
	// selection service
	{selection.ErrSelectionNotFound, http.StatusNotFound},
	{selection.ErrCityRequired, http.StatusBadRequest},
	{selection.ErrSlotOutOfRange, http.StatusBadRequest},
	{selection.ErrInvalidTime, http.StatusBadRequest},
	{selection.ErrNotLoaded, http.StatusConflict},
	{selection.ErrCannotProceed, http.StatusUnprocessableEntity},
	// checkout service
	{checkout.ErrConfirmationNotFound, http.StatusNotFound},
	{checkout.ErrInvalidBooking, http.StatusBadRequest},
	{checkout.ErrNoSlots, http.StatusConflict},
	{checkout.ErrPaymentInProgress, http.StatusConflict},
	{checkout.ErrNoPaymentStarted, http.StatusConflict},
	{checkout.ErrAlreadyCompleted, http.StatusConflict},
	{checkout.ErrProcessingStopped, http.StatusBadGateway},
	// ticketing service
	{ticketing.ErrTicketNotFound, http.StatusNotFound},
	{ticketing.ErrNoHandoff, http.StatusConflict},
	// verification service
	{verification.ErrSessionNotFound, http.StatusNotFound},
	{verification.ErrOperatorRequired, http.StatusBadRequest},
	{verification.ErrNoSeatsToFree, http.StatusBadRequest},
	{verification.ErrNoMatch, http.StatusConflict},
	{verification.ErrOTPNotRequested, http.StatusConflict},
	{verification.ErrOTPNotSent, http.StatusBadGateway},
	{verification.ErrInvalidOTP, http.StatusUnprocessableEntity},
	{verification.ErrFreeSlotsFailed, http.StatusBadGateway},
}
