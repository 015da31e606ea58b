package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotSelected  SlotStatus = "selected-pending"
	SlotBooked    SlotStatus = "booked"
)

type Slot struct {
	Index  int        `json:"index"`
	Label  string     `json:"label"`
	City   string     `json:"city"`
	Status SlotStatus `json:"status"`
}

// SeatInfo is the inventory snapshot for a city: total slot count, labels
// already booked and the hourly price.
type SeatInfo struct {
	Seat  *FlexInt    `json:"seat"`
	Slots FlexStrings `json:"slots"`
	Price FlexFloat   `json:"price"`
}

// Booking is the draft handed from selection to confirmation and the body
// persisted once payment is verified. PIN is zero until confirmation.
type Booking struct {
	City          string   `json:"city" validate:"required"`
	SlotNumbers   []string `json:"slotNumbers" validate:"required,min=1,unique,dive,required"`
	Date          string   `json:"date" validate:"required"`
	EntryTime     string   `json:"entryTime" validate:"required,clock"`
	ExitTime      string   `json:"exitTime" validate:"required,clock"`
	VehicleNumber string   `json:"vehicleno" validate:"required"`
	TotalAmount   float64  `json:"totalAmount" validate:"gte=0"`
	PIN           int      `json:"pin,omitempty"`
}

// BookingRecord is a booking as the backend reports it. Numeric fields are
// tolerant of string encodings.
type BookingRecord struct {
	City          string      `json:"city"`
	SlotNumbers   FlexStrings `json:"slotNumbers"`
	Date          string      `json:"date"`
	EntryTime     string      `json:"entryTime"`
	ExitTime      string      `json:"exitTime"`
	VehicleNumber string      `json:"vehicleno"`
	TotalAmount   FlexFloat   `json:"totalAmount"`
	PIN           FlexInt     `json:"pin"`
	Name          string      `json:"name,omitempty"`
}

type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Handoff carries the confirmed booking from payment to ticket issuance.
type Handoff struct {
	PIN           int      `json:"pin"`
	SlotNumbers   []string `json:"slotNumbers"`
	VehicleNumber string   `json:"vehicleno"`
}

type PaymentOrder struct {
	ID       string  `json:"id"`
	Amount   FlexInt `json:"amount"`
	Currency string  `json:"currency"`
}

type AggregateConfirmation struct {
	SlotNumbers   []string `json:"slotNumbers"`
	Name          string   `json:"name"`
	Date          string   `json:"date"`
	VehicleNumber string   `json:"vehicleno"`
	TotalAmount   float64  `json:"totalAmount"`
	City          string   `json:"city"`
}

type SlotOccupancy struct {
	City  string   `json:"city"`
	Slots []string `json:"slots"`
}

type FreeSlots struct {
	PIN         int      `json:"pin"`
	SeatsToFree []string `json:"seatsToFree"`
}

type Notice struct {
	Noti string `json:"noti"`
}

type Notification struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

type TaskKind string

const (
	TaskConfirmAggregate TaskKind = "confirm_aggregate"
	TaskMarkOccupied     TaskKind = "mark_occupied"
	TaskPostNotice       TaskKind = "post_notice"
	TaskSendNotification TaskKind = "send_notification"
)

// Task is a fire-and-forget backend call. Cookie replays the end user's
// backend session when the call runs outside the originating request.
type Task struct {
	Kind    TaskKind        `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	Cookie  string          `json:"cookie,omitempty"`
}

func NewTask(kind TaskKind, payload any) (Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}

	return Task{Kind: kind, Payload: b}, nil
}

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxDone    OutboxStatus = "done"
	OutboxDead    OutboxStatus = "dead"
)

type OutboxEntry struct {
	ID        uuid.UUID
	Task      Task
	Attempts  int
	Status    OutboxStatus
	LastError string
	NextRunAt time.Time
	CreatedAt time.Time
}

// Ticket is an issued parking pass. It never changes after insertion.
type Ticket struct {
	ID            uuid.UUID `json:"id"`
	PIN           int       `json:"pin"`
	City          string    `json:"city"`
	SlotNumbers   []string  `json:"slotNumbers"`
	VehicleNumber string    `json:"vehicleno"`
	Name          string    `json:"name"`
	Date          string    `json:"date"`
	EntryTime     string    `json:"entryTime"`
	ExitTime      string    `json:"exitTime"`
	TotalAmount   float64   `json:"totalAmount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Payload builds the QR payload for the ticket.
func (t Ticket) Payload() TicketPayload {
	return TicketPayload{
		Token:    t.PIN,
		Slots:    t.SlotNumbers,
		Vehicle:  t.VehicleNumber,
		Location: t.City,
		ExitTime: t.ExitTime,
	}
}
