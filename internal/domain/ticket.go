package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidPayload = errors.New("invalid QR code format")

// TicketPayload is the QR wire format.
type TicketPayload struct {
	Token    int      `json:"token"`
	Slots    []string `json:"slots"`
	Vehicle  string   `json:"vehicle"`
	Location string   `json:"location"`
	ExitTime string   `json:"exitTime"`
}

func (p TicketPayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type rawPayload struct {
	Token    json.RawMessage `json:"token"`
	Slots    FlexStrings     `json:"slots"`
	Vehicle  string          `json:"vehicle"`
	Location string          `json:"location"`
	ExitTime string          `json:"exitTime"`
}

// DecodeTicketPayload parses scanned QR text. The token may be a JSON number
// or a string, but must hold an integer.
func DecodeTicketPayload(text string) (TicketPayload, error) {
	var raw rawPayload

	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return TicketPayload{}, ErrInvalidPayload
	}

	token, err := parseToken(raw.Token)
	if err != nil {
		return TicketPayload{}, ErrInvalidPayload
	}

	return TicketPayload{
		Token:    token,
		Slots:    []string(raw.Slots),
		Vehicle:  raw.Vehicle,
		Location: raw.Location,
		ExitTime: raw.ExitTime,
	}, nil
}

func parseToken(b json.RawMessage) (int, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, ErrInvalidPayload
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
	}

	return strconv.Atoi(strings.TrimSpace(s))
}
