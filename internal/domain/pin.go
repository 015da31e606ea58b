package domain

import (
	"crypto/rand"
	"io"
	"math/big"
	"strconv"
	"strings"
)

const (
	pinMin   = 1000
	pinRange = 9000
)

// GeneratePIN draws a uniform 4-digit PIN in [1000, 9999]. A nil reader uses
// crypto/rand.
func GeneratePIN(r io.Reader) (int, error) {
	if r == nil {
		r = rand.Reader
	}

	n, err := rand.Int(r, big.NewInt(pinRange))
	if err != nil {
		return 0, err
	}

	return pinMin + int(n.Int64()), nil
}

// ParsePIN parses operator input the same way a scanned token is parsed.
func ParsePIN(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

// FindByPIN returns the first record whose pin equals pin.
func FindByPIN(records []BookingRecord, pin int) (BookingRecord, bool) {
	for _, r := range records {
		if int(r.PIN) == pin {
			return r, true
		}
	}
	return BookingRecord{}, false
}
