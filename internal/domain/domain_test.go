package domain

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLabel_RoundTrip(t *testing.T) {
	assert.Equal(t, "001", SlotLabel(0))
	assert.Equal(t, "003", SlotLabel(2))
	assert.Equal(t, "050", SlotLabel(49))
	assert.Equal(t, "1000", SlotLabel(999))

	for i := 0; i < 200; i++ {
		idx, err := SlotIndex(SlotLabel(i))
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}

	_, err := SlotIndex("abc")
	assert.Error(t, err)
	_, err = SlotIndex("000")
	assert.Error(t, err)
}

func TestBuildSlots_BookedMembership(t *testing.T) {
	booked := []string{"003", "010"}
	slots := BuildSlots("Chennai", 12, booked, map[int]bool{4: true, 2: true})

	require.Len(t, slots, 12)
	for _, s := range slots {
		isBooked := s.Label == "003" || s.Label == "010"
		assert.Equal(t, isBooked, s.Status == SlotBooked, s.Label)
		assert.Equal(t, "Chennai", s.City)
	}
	assert.Equal(t, SlotSelected, slots[4].Status)
	assert.Equal(t, SlotBooked, slots[2].Status)
}

func TestDurationHours(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		exit  string
		want  int
	}{
		{name: "same day", entry: "09:00", exit: "18:00", want: 9},
		{name: "overnight", entry: "22:00", exit: "02:00", want: 4},
		{name: "partial hour rounds up", entry: "09:00", exit: "10:01", want: 2},
		{name: "equal times", entry: "10:00", exit: "10:00", want: 0},
		{name: "missing entry", entry: "", exit: "10:00", want: 0},
		{name: "missing exit", entry: "10:00", exit: "", want: 0},
		{name: "overnight with minutes", entry: "23:30", exit: "00:15", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DurationHours(tt.entry, tt.exit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DurationHours("9am", "10:00")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestTotalAmount(t *testing.T) {
	assert.Equal(t, 360.0, TotalAmount(2, 20, 9))
	assert.Equal(t, 0.0, TotalAmount(0, 20, 9))
	assert.Equal(t, int64(36000), MinorUnits(360))
	assert.Equal(t, int64(1999), MinorUnits(19.99))
}

func TestTicketPayload_RoundTrip(t *testing.T) {
	p := TicketPayload{
		Token:    4821,
		Slots:    []string{"003", "006"},
		Vehicle:  "TN01AB1234",
		Location: "Chennai",
		ExitTime: "18:00",
	}

	text, err := p.Encode()
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &keys))
	assert.Len(t, keys, 5)
	for _, k := range []string{"token", "slots", "vehicle", "location", "exitTime"} {
		assert.Contains(t, keys, k)
	}

	got, err := DecodeTicketPayload(text)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	again, err := got.Encode()
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestDecodeTicketPayload_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		"4821",
		`{"slots":["001"]}`,
		`{"token":"abc"}`,
		`{"token":null}`,
		`{"token":12.5}`,
		`[1,2]`,
		`{"token":4821}garbage`,
		`{"token":4821}{"token":1111}`,
	}

	for _, in := range inputs {
		_, err := DecodeTicketPayload(in)
		assert.ErrorIs(t, err, ErrInvalidPayload, in)
	}
}

func TestDecodeTicketPayload_StringToken(t *testing.T) {
	p, err := DecodeTicketPayload(`{"token":"4821","slots":"003, 006","vehicle":"KA01","location":"Bengaluru","exitTime":"10:00"}`)
	require.NoError(t, err)
	assert.Equal(t, 4821, p.Token)
	assert.Equal(t, []string{"003", "006"}, p.Slots)
}

func TestGeneratePIN(t *testing.T) {
	for i := 0; i < 500; i++ {
		pin, err := GeneratePIN(nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pin, 1000)
		assert.LessOrEqual(t, pin, 9999)
	}

	pin, err := GeneratePIN(bytes.NewReader(make([]byte, 16)))
	require.NoError(t, err)
	assert.Equal(t, 1000, pin)
}

func TestFindByPIN(t *testing.T) {
	records := []BookingRecord{{PIN: 1234}, {PIN: 4821, City: "Chennai"}}

	pin, ok := ParsePIN("4821")
	require.True(t, ok)
	rec, found := FindByPIN(records, pin)
	assert.True(t, found)
	assert.Equal(t, "Chennai", rec.City)

	pin, ok = ParsePIN("0000")
	require.True(t, ok)
	_, found = FindByPIN(records, pin)
	assert.False(t, found)

	_, ok = ParsePIN("48a1")
	assert.False(t, ok)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"003", "006"}, SplitList("003, 006"))
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ,, b ,"))
	assert.Empty(t, SplitList(""))
}

func TestBookingRecord_FlexibleDecode(t *testing.T) {
	var rec BookingRecord
	err := json.Unmarshal([]byte(`{"pin":"4821","totalAmount":"360","slotNumbers":["003",6],"vehicleno":"TN01"}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, FlexInt(4821), rec.PIN)
	assert.Equal(t, FlexFloat(360), rec.TotalAmount)
	assert.Equal(t, FlexStrings{"003", "6"}, rec.SlotNumbers)

	var info SeatInfo
	require.NoError(t, json.Unmarshal([]byte(`{"seat":null,"slots":[]}`), &info))
	assert.Nil(t, info.Seat)
}

func TestBooking_Validate(t *testing.T) {
	b := Booking{
		City:          "Chennai",
		SlotNumbers:   []string{"003", "006"},
		Date:          "2026-10-18",
		EntryTime:     "09:00",
		ExitTime:      "18:00",
		VehicleNumber: "TN01AB1234",
		TotalAmount:   360,
	}
	require.NoError(t, b.Validate())

	dup := b
	dup.SlotNumbers = []string{"003", "003"}
	assert.Error(t, dup.Validate())

	empty := b
	empty.SlotNumbers = nil
	assert.Error(t, empty.Validate())

	badClock := b
	badClock.ExitTime = "6pm"
	err := badClock.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ExitTime")
}
