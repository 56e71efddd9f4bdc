package model

import "time"

type NotificationReason string

const (
	ReasonEvicted            NotificationReason = "evicted by higher-priority booking"
	ReasonTransactionCascade NotificationReason = "cancelled with evicted transaction member"
)

type Notification struct {
	Recipient     User               `json:"recipient"`
	BookingID     string             `json:"booking_id"`
	Facility      string             `json:"facility"`
	Range         TimeRange          `json:"range"`
	TransactionID string             `json:"transaction_id,omitempty"`
	Reason        NotificationReason `json:"reason"`
	CancelledAt   time.Time          `json:"cancelled_at"`
	// Sequence is assigned by the channel on publish; per recipient it grows
	// in cancellation order.
	Sequence uint64 `json:"sequence"`
}
