package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

const clockLayout = "15:04"

var ErrInvalidClock = errors.New("time must be HH:MM")

// SlotLabel renders the 1-based, zero padded label for a slot index.
func SlotLabel(index int) string {
	return fmt.Sprintf("%03d", index+1)
}

// SlotIndex is the inverse of SlotLabel.
func SlotIndex(label string) (int, error) {
	n, err := strconv.Atoi(label)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid slot label %q", label)
	}
	return n - 1, nil
}

// ParseClock returns minutes since midnight for an HH:MM value.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, ErrInvalidClock
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DurationHours returns the billable hours between entry and exit. An exit
// earlier than entry wraps to the next day. Partial hours round up. Either
// value being empty yields zero.
func DurationHours(entry, exit string) (int, error) {
	if entry == "" || exit == "" {
		return 0, nil
	}

	from, err := ParseClock(entry)
	if err != nil {
		return 0, err
	}

	to, err := ParseClock(exit)
	if err != nil {
		return 0, err
	}

	const day = 24 * 60
	diff := ((to-from)%day + day) % day

	return int(math.Ceil(float64(diff) / 60)), nil
}

// TotalAmount is slots × hourly price × billable hours.
func TotalAmount(selected int, pricePerHour float64, hours int) float64 {
	return float64(selected) * pricePerHour * float64(hours)
}

// MinorUnits converts a currency amount to minor units (paise/cents).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// BuildSlots lays out capacity slots for a city, marking labels present in
// booked as booked and indices present in selected as selected.
func BuildSlots(city string, capacity int, booked []string, selected map[int]bool) []Slot {
	bookedSet := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		bookedSet[b] = struct{}{}
	}

	out := make([]Slot, 0, capacity)
	for i := 0; i < capacity; i++ {
		label := SlotLabel(i)
		status := SlotAvailable
		if _, ok := bookedSet[label]; ok {
			status = SlotBooked
		} else if selected[i] {
			status = SlotSelected
		}
		out = append(out, Slot{
			Index:  i,
			Label:  label,
			City:   city,
			Status: status,
		})
	}

	return out
}
