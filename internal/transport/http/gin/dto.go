package httpgin

import (
	"github.com/nammaspot/parkgo/internal/service/checkout"
	"github.com/nammaspot/parkgo/internal/service/verification"
)

type OpenSelectionRequest struct {
	City string `json:"city" binding:"required"`
}

// UpdateSelectionRequest is a partial update; absent fields are kept.
type UpdateSelectionRequest struct {
	Date          *string `json:"date"`
	EntryTime     *string `json:"entryTime"`
	ExitTime      *string `json:"exitTime"`
	VehicleNumber *string `json:"vehicleno"`
}

type IssueTicketRequest struct {
	ConfirmationID string `json:"confirmationId" binding:"required"`
}

type ScanRequest struct {
	Text string `json:"text" binding:"required"`
}

type PINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

type SeatsRequest struct {
	SeatsToFree string `json:"seatsToFree"`
}

type OTPRequest struct {
	OTP string `json:"otp" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// VerificationErrorResponse carries the session alongside a failed
// operator action so the desk can show the current message.
type VerificationErrorResponse struct {
	Error   string             `json:"error"`
	Session *verification.View `json:"session,omitempty"`
}

type PaymentCallbackResponse struct {
	Confirmation *checkout.Confirmation `json:"confirmation"`
	TicketID     string                 `json:"ticketId"`
}
