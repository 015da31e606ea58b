package verification

import "errors"

var (
	ErrSessionNotFound  = errors.New("verification session not found")
	ErrNoMatch          = errors.New("no matched booking")
	ErrNoSeatsToFree    = errors.New("no slots entered to free")
	ErrOTPNotRequested  = errors.New("otp has not been requested")
	ErrOTPNotSent       = errors.New("otp was not sent")
	ErrInvalidOTP       = errors.New("invalid otp")
	ErrFreeSlotsFailed  = errors.New("error freeing slots")
	ErrRateLimited      = errors.New("too many verification attempts")
	ErrOperatorRequired = errors.New("operator is required")
)

const (
	msgMatched      = "Successfully matched"
	msgNoMatch      = "No match found"
	msgInvalidScan  = "Invalid QR code format"
	msgInvalidOTP   = "Invalid OTP"
	msgSlotsFreed   = "Slots freed successfully"
	msgPINNotFound  = "PIN not found"
	msgFreeFailed   = "Error freeing slots"
	msgLoadingError = "Error loading data"

	noticeIn  = "YOU ARE IN"
	noticeOut = "YOU ARE OUT"
)
