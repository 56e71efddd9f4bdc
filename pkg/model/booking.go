package model

import (
	"time"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
)

// TimeRange is half-open: [Start, End).
type TimeRange struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

func (r TimeRange) Valid() bool {
	return r.End.After(r.Start)
}

func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

type Booking struct {
	ID            string        `json:"id"`
	User          User          `json:"user"`
	Facility      string        `json:"facility"`
	Range         TimeRange     `json:"range"`
	Status        BookingStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	// Sequence is the facility-local admission order. Lower is older.
	Sequence  uint64    `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

func (b Booking) IsActive() bool {
	return b.Status == BookingActive
}
