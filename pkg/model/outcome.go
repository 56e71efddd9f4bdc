package model

import (
	apperrors "reservations/pkg/errors"
)

type OutcomeStatus string

const (
	OutcomeAdmitted OutcomeStatus = "admitted"
	OutcomeRejected OutcomeStatus = "rejected"
)

type RejectReason string

const (
	RejectCapacityExceeded RejectReason = "capacity_exceeded"
	RejectInvalidRequest   RejectReason = "invalid_request"
)

// Outcome is the terminal result of one reservation request. Admitted
// outcomes carry every member booking; Evicted lists third-party bookings that
// were cancelled to make room and were routed to the notification channel.
type Outcome struct {
	TransactionID    string        `json:"transaction_id"`
	Status           OutcomeStatus `json:"status"`
	Bookings         []Booking     `json:"bookings,omitempty"`
	Evicted          []Booking     `json:"evicted,omitempty"`
	Reason           RejectReason  `json:"reason,omitempty"`
	BlockingFacility string        `json:"blocking_facility,omitempty"`
	Message          string        `json:"message,omitempty"`
}

func Admitted(transactionID string, bookings, evicted []Booking) Outcome {
	return Outcome{
		TransactionID: transactionID,
		Status:        OutcomeAdmitted,
		Bookings:      bookings,
		Evicted:       evicted,
	}
}

func Rejected(transactionID string, reason RejectReason, facility, message string) Outcome {
	return Outcome{
		TransactionID:    transactionID,
		Status:           OutcomeRejected,
		Reason:           reason,
		BlockingFacility: facility,
		Message:          message,
	}
}

func (o Outcome) IsAdmitted() bool {
	return o.Status == OutcomeAdmitted
}

// BookingIDs returns the ids of the admitted bookings in facility order.
func (o Outcome) BookingIDs() []string {
	ids := make([]string, 0, len(o.Bookings))
	for _, b := range o.Bookings {
		ids = append(ids, b.ID)
	}
	return ids
}

// Err maps a rejection to its app error; nil for admitted outcomes.
func (o Outcome) Err() error {
	if o.IsAdmitted() {
		return nil
	}
	switch o.Reason {
	case RejectCapacityExceeded:
		return apperrors.CapacityExceeded(o.BlockingFacility)
	case RejectInvalidRequest:
		msg := o.Message
		if msg == "" {
			msg = "invalid reservation request"
		}
		return apperrors.InvalidRequest(msg, nil)
	default:
		return apperrors.Internal("unknown rejection reason", nil)
	}
}
