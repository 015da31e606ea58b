package ticketing

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrNoHandoff      = errors.New("booking is not confirmed yet")
)
