package notification

import (
	"context"
	"fmt"

	"reservations/pkg/kafka"
	"reservations/pkg/model"
)

const (
	EventTypeBookingCancelled = "booking.cancelled"
	SchemaVersion             = "1"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaSink writes each notification to the cancellations topic keyed by
// recipient, so one user's notices stay on one partition in order.
type KafkaSink struct {
	publisher Publisher
	source    string
}

func NewKafkaSink(publisher Publisher, source string) *KafkaSink {
	return &KafkaSink{publisher: publisher, source: source}
}

func (s *KafkaSink) Deliver(ctx context.Context, n model.Notification) error {
	mb := kafka.NewMessage().
		WithKey(n.Recipient.ID).
		WithValue(n).
		WithEventType(EventTypeBookingCancelled).
		WithCorrelationID(n.TransactionID).
		WithSchemaVersion(SchemaVersion).
		WithSource(s.source).
		WithHeader("facility", n.Facility)
	if err := mb.Err(); err != nil {
		return fmt.Errorf("encode notification %s: %w", n.BookingID, err)
	}
	return s.publisher.Publish(ctx, mb.Build())
}

// DecodeNotification is the consumer-side inverse of Deliver.
func DecodeNotification(msg kafka.Message) (model.Notification, error) {
	if t := msg.GetEventType(); t != EventTypeBookingCancelled {
		return model.Notification{}, kafka.NewPermanentError(fmt.Sprintf("unexpected event type %q", t), kafka.ErrInvalidMessage)
	}

	var n model.Notification
	if err := msg.DecodeValue(&n); err != nil {
		return model.Notification{}, kafka.NewPermanentError("decode notification", err)
	}
	if n.Recipient.ID == "" || n.BookingID == "" {
		return model.Notification{}, kafka.NewPermanentError("notification missing recipient or booking", kafka.ErrInvalidMessage)
	}
	return n, nil
}
