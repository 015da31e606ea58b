package selection

import (
	"slices"

	"github.com/nammaspot/parkgo/internal/domain"
)

// Selection is one user's in-progress slot pick for a city. It is stored
// between requests and rebuilt from the backend on Retry.
type Selection struct {
	ID            string   `json:"id"`
	City          string   `json:"city"`
	Loaded        bool     `json:"loaded"`
	LoadError     string   `json:"loadError,omitempty"`
	Capacity      int      `json:"capacity"`
	Booked        []string `json:"booked"`
	Price         float64  `json:"price"`
	Selected      []int    `json:"selected"`
	Date          string   `json:"date"`
	EntryTime     string   `json:"entryTime"`
	ExitTime      string   `json:"exitTime"`
	VehicleNumber string   `json:"vehicleno"`
}

// Apply replaces the inventory snapshot. A missing seat count leaves the
// selection in the load-error state. Selected indices that became booked
// or fell out of range are dropped.
func (s *Selection) Apply(info domain.SeatInfo) {
	if info.Seat == nil {
		s.Loaded = false
		s.LoadError = loadErrorMessage
		return
	}

	s.Loaded = true
	s.LoadError = ""
	s.Capacity = max(int(*info.Seat), 0)
	s.Booked = []string(info.Slots)
	s.Price = float64(info.Price)

	kept := s.Selected[:0]
	for _, i := range s.Selected {
		if i < s.Capacity && !s.IsBooked(i) {
			kept = append(kept, i)
		}
	}
	s.Selected = kept
}

// Fail puts the selection in the recoverable load-error state.
func (s *Selection) Fail() {
	s.Loaded = false
	s.LoadError = loadErrorMessage
}

func (s *Selection) IsBooked(index int) bool {
	return slices.Contains(s.Booked, domain.SlotLabel(index))
}

func (s *Selection) IsSelected(index int) bool {
	return slices.Contains(s.Selected, index)
}

// Toggle flips the selection of a slot. Booked slots are left untouched.
func (s *Selection) Toggle(index int) error {
	if !s.Loaded {
		return ErrNotLoaded
	}
	if index < 0 || index >= s.Capacity {
		return ErrSlotOutOfRange
	}
	if s.IsBooked(index) {
		return nil
	}

	if i := slices.Index(s.Selected, index); i >= 0 {
		s.Selected = slices.Delete(s.Selected, i, i+1)
		return nil
	}

	s.Selected = append(s.Selected, index)
	slices.Sort(s.Selected)

	return nil
}

// SelectedLabels lists selected slot labels in slot order.
func (s *Selection) SelectedLabels() []string {
	out := make([]string, 0, len(s.Selected))
	for _, i := range s.Selected {
		out = append(out, domain.SlotLabel(i))
	}
	return out
}

// Quote returns the billable hours and the total for the current state.
func (s *Selection) Quote() (int, float64) {
	hours, err := domain.DurationHours(s.EntryTime, s.ExitTime)
	if err != nil {
		return 0, 0
	}
	return hours, domain.TotalAmount(len(s.Selected), s.Price, hours)
}

func (s *Selection) CanProceed() bool {
	return s.Loaded &&
		len(s.Selected) > 0 &&
		s.Date != "" &&
		s.EntryTime != "" &&
		s.ExitTime != "" &&
		s.VehicleNumber != ""
}

// Draft builds the booking handed to confirmation. It has no PIN.
func (s *Selection) Draft() (domain.Booking, error) {
	if !s.CanProceed() {
		return domain.Booking{}, ErrCannotProceed
	}

	_, total := s.Quote()

	return domain.Booking{
		City:          s.City,
		SlotNumbers:   s.SelectedLabels(),
		Date:          s.Date,
		EntryTime:     s.EntryTime,
		ExitTime:      s.ExitTime,
		VehicleNumber: s.VehicleNumber,
		TotalAmount:   total,
	}, nil
}

func (s *Selection) Slots() []domain.Slot {
	selected := make(map[int]bool, len(s.Selected))
	for _, i := range s.Selected {
		selected[i] = true
	}
	return domain.BuildSlots(s.City, s.Capacity, s.Booked, selected)
}

// View is the rendered state of a selection.
type View struct {
	ID            string        `json:"id"`
	City          string        `json:"city"`
	Loaded        bool          `json:"loaded"`
	Error         string        `json:"error,omitempty"`
	Slots         []domain.Slot `json:"slots"`
	SelectedSlots []string      `json:"selectedSlots"`
	PricePerHour  float64       `json:"pricePerHour"`
	Date          string        `json:"date"`
	EntryTime     string        `json:"entryTime"`
	ExitTime      string        `json:"exitTime"`
	VehicleNumber string        `json:"vehicleno"`
	Hours         int           `json:"hours"`
	TotalAmount   float64       `json:"totalAmount"`
	CanProceed    bool          `json:"canProceed"`
}

func (s *Selection) View() View {
	hours, total := s.Quote()

	return View{
		ID:            s.ID,
		City:          s.City,
		Loaded:        s.Loaded,
		Error:         s.LoadError,
		Slots:         s.Slots(),
		SelectedSlots: s.SelectedLabels(),
		PricePerHour:  s.Price,
		Date:          s.Date,
		EntryTime:     s.EntryTime,
		ExitTime:      s.ExitTime,
		VehicleNumber: s.VehicleNumber,
		Hours:         hours,
		TotalAmount:   total,
		CanProceed:    s.CanProceed(),
	}
}
