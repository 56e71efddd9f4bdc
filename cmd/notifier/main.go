package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"reservations/internal/notification"
	"reservations/pkg/config"
	"reservations/pkg/kafka"
	kafkamw "reservations/pkg/kafka/middleware"
	"reservations/pkg/logger"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	if cfg.Kafka == nil {
		cfg.Log.Fatal("Notifier requires Kafka", "hint", "set KAFKA_ENABLED=true")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := kafka.NewConsumer(
		cfg.Kafka,
		cfg.KafkaCancellationsTopic,
		cfg.KafkaNotifierGroupID,
		cfg.KafkaCancellationsDLQ,
		handleCancellation(cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := &kafkamw.Metrics{}
	if cfg.Kafka.EnableMiddleware {
		consumer.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.ConsumerMiddleware())
	}

	cfg.Log.Info("Starting cancellation notifier",
		"topic", cfg.KafkaCancellationsTopic,
		"group_id", cfg.KafkaNotifierGroupID,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}

	s := metrics.Snapshot()
	cfg.Log.Info("Cancellation notifier stopped",
		"consumed", s.Consumed,
		"consume_failed", s.ConsumeFailed,
		"avg_consume_duration", s.AvgConsumeDuration,
	)
}

// handleCancellation writes every cancellation notice as a structured record.
// Undecodable messages fail permanently and go to the DLQ.
func handleCancellation(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		n, err := notification.DecodeNotification(msg)
		if err != nil {
			return err
		}

		log.InfoContext(ctx, "Booking cancelled notice",
			"recipient", n.Recipient.ID,
			"booking_id", n.BookingID,
			"facility", n.Facility,
			"transaction_id", n.TransactionID,
			"reason", n.Reason,
			"start", n.Range.Start,
			"end", n.Range.End,
			"sequence", n.Sequence,
		)
		return nil
	}
}
