package verification

import (
	"strconv"
	"strings"

	"github.com/nammaspot/parkgo/internal/domain"
)

type State string

const (
	StateIdle         State = "idle"
	StateEntering     State = "entering"
	StateMatched      State = "matched"
	StateNoMatch      State = "no_match"
	StateInvalidScan  State = "invalid_scan"
	StateOTPPending   State = "otp_pending"
	StateOutConfirmed State = "out_confirmed"
)

// Session is one operator's verification desk. Records is the issued-PIN
// list fetched when the session opened; it is not refreshed.
type Session struct {
	ID          string                 `json:"id"`
	OperatorID  string                 `json:"operatorId"`
	State       State                  `json:"state"`
	Message     string                 `json:"message,omitempty"`
	Records     []domain.BookingRecord `json:"records"`
	LoadErrors  []string               `json:"loadErrors,omitempty"`
	Number      string                 `json:"number"`
	Email       string                 `json:"email"`
	PIN         string                 `json:"pin"`
	Scanned     *domain.TicketPayload  `json:"scanned,omitempty"`
	Matched     *domain.BookingRecord  `json:"matched,omitempty"`
	SeatsInput  string                 `json:"seatsInput"`
	SeatsToFree []string               `json:"seatsToFree"`
	OTPVerified bool                   `json:"otpVerified"`
}

// EnterPIN replaces the active PIN with manual input. Any previous match is
// cleared.
func (s *Session) EnterPIN(text string) {
	s.reset()
	s.PIN = strings.TrimSpace(text)
	s.Scanned = nil
	s.State = StateEntering
}

// Scan sets the active PIN from scanned QR text. Malformed text is a
// terminal failure for that scan and reports false.
func (s *Session) Scan(text string) bool {
	s.reset()

	p, err := domain.DecodeTicketPayload(text)
	if err != nil {
		s.Scanned = nil
		s.State = StateInvalidScan
		s.Message = msgInvalidScan
		return false
	}

	s.Scanned = &p
	s.PIN = strconv.Itoa(p.Token)
	s.State = StateEntering
	return true
}

// Verify looks the active PIN up in the cached records.
func (s *Session) Verify() bool {
	s.reset()

	pin, ok := domain.ParsePIN(s.PIN)
	if ok {
		if rec, found := domain.FindByPIN(s.Records, pin); found {
			s.Matched = &rec
			s.State = StateMatched
			s.Message = msgMatched
			return true
		}
	}

	s.State = StateNoMatch
	s.Message = msgNoMatch
	return false
}

func (s *Session) SetSeatsToFree(input string) {
	s.SeatsInput = input
	s.SeatsToFree = domain.SplitList(input)
}

func (s *Session) reset() {
	s.Matched = nil
	s.OTPVerified = false
	s.Message = ""
}

// MatchedPIN is the PIN of the matched record.
func (s *Session) MatchedPIN() (int, bool) {
	if s.Matched == nil {
		return 0, false
	}
	return int(s.Matched.PIN), true
}

// View is what the operator sees. Booking details come from the matched
// server record, never from the scanned payload.
type View struct {
	ID          string                `json:"id"`
	State       State                 `json:"state"`
	Message     string                `json:"message,omitempty"`
	PIN         string                `json:"pin"`
	Scanned     *domain.TicketPayload `json:"scanned,omitempty"`
	Match       *MatchView            `json:"match,omitempty"`
	SeatsToFree []string              `json:"seatsToFree"`
	OTPVerified bool                  `json:"otpVerified"`
	Records     int                   `json:"records"`
	LoadErrors  []string              `json:"loadErrors,omitempty"`
}

type MatchView struct {
	Token         int      `json:"token"`
	SlotNumbers   []string `json:"slotNumbers"`
	Date          string   `json:"date"`
	VehicleNumber string   `json:"vehicleno"`
	EntryTime     string   `json:"entryTime"`
	ExitTime      string   `json:"exitTime"`
	TotalAmount   float64  `json:"totalAmount"`
	City          string   `json:"city"`
}

func (s *Session) View() View {
	v := View{
		ID:          s.ID,
		State:       s.State,
		Message:     s.Message,
		PIN:         s.PIN,
		Scanned:     s.Scanned,
		SeatsToFree: s.SeatsToFree,
		OTPVerified: s.OTPVerified,
		Records:     len(s.Records),
		LoadErrors:  s.LoadErrors,
	}
	if v.SeatsToFree == nil {
		v.SeatsToFree = []string{}
	}

	if m := s.Matched; m != nil {
		v.Match = &MatchView{
			Token:         int(m.PIN),
			SlotNumbers:   []string(m.SlotNumbers),
			Date:          m.Date,
			VehicleNumber: m.VehicleNumber,
			EntryTime:     m.EntryTime,
			ExitTime:      m.ExitTime,
			TotalAmount:   float64(m.TotalAmount),
			City:          m.City,
		}
	}

	return v
}
