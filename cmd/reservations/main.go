package main

import (
	"context"

	"reservations/internal/coordinator"
	"reservations/internal/notification"
	"reservations/internal/reservations/handler"
	"reservations/pkg/app"
	"reservations/pkg/config"
	"reservations/pkg/kafka"
	kafkamw "reservations/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Reservations service")
	serverApp := app.NewApplication(cfg)
	coord := initCoordinator(cfg, serverApp)

	serverApp.SetApp(
		handler.NewHealthHandler(coord, cfg.Log),
		handler.NewReservationHandler(coord, cfg.LongPollTimeout, cfg.Log),
	)
	serverApp.Run()
}

// initCoordinator builds the notification channel, optionally relayed to
// Kafka, and the coordinator on top of it. Shutdown closes the channel before
// the producer so the relay can flush.
func initCoordinator(cfg *config.Config, serverApp *app.Application) *coordinator.Coordinator {
	channelOpts := []notification.Option{
		notification.WithMaxPending(cfg.NotificationMaxPending),
		notification.WithLogger(cfg.Log),
	}

	var (
		producer *kafka.Producer
		metrics  *kafkamw.Metrics
	)
	if cfg.KafkaEnabled {
		var err error
		producer, err = kafka.NewProducer(cfg.Kafka, cfg.KafkaCancellationsTopic, cfg.KafkaCancellationsDLQ, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		metrics = &kafkamw.Metrics{}
		if cfg.Kafka.EnableMiddleware {
			producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
			producer.Use(metrics.ProducerMiddleware())
		}

		channelOpts = append(channelOpts, notification.WithSink(notification.NewKafkaSink(producer, ServiceName)))
		cfg.Log.Info("Cancellation relay enabled", "topic", cfg.KafkaCancellationsTopic)
	}

	channel := notification.NewChannel(channelOpts...)
	serverApp.OnShutdown("notification-channel", channel.Close)
	if producer != nil {
		serverApp.OnShutdown("kafka-producer", func(context.Context) error {
			s := metrics.Snapshot()
			cfg.Log.Info("Kafka producer metrics",
				"published", s.Published,
				"publish_failed", s.PublishFailed,
				"avg_publish_duration", s.AvgPublishDuration,
			)
			return producer.Close()
		})
	}

	coord, err := coordinator.New(coordinator.Config{
		Capacities: cfg.FacilityCapacities,
		VIPUsers:   cfg.VIPUsers,
	},
		coordinator.WithLogger(cfg.Log),
		coordinator.WithChannel(channel),
		coordinator.WithRejectPastStart(cfg.RejectPastStart),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize coordinator", "error", err)
	}
	return coord
}
