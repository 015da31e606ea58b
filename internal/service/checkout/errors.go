package checkout

import "errors"

var (
	ErrConfirmationNotFound = errors.New("confirmation not found")
	ErrInvalidBooking       = errors.New("invalid booking")
	ErrNoSlots              = errors.New("no slots selected")
	ErrPaymentInProgress    = errors.New("payment already in progress")
	ErrNoPaymentStarted     = errors.New("payment was not started")
	ErrAlreadyCompleted     = errors.New("booking already confirmed")
	ErrProcessingStopped    = errors.New("payment processing stopped, please try again")
)
