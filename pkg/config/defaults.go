package config

import "time"

const (
	DefaultFacilityCapacities     = "Room=2,Projector=2"
	DefaultNotificationMaxPending = 0
	DefaultRejectPastStart        = true

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRequestSize  = 64 * 1024
	DefaultLongPollTimeout = 10 * time.Second
	DefaultIdempotencyTTL  = 24 * time.Hour

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultKafkaEnabled            = false
	DefaultKafkaCancellationsTopic = "reservations.cancellations"
	DefaultKafkaCancellationsDLQ   = "reservations.cancellations.dlq"
	DefaultKafkaNotifierGroupID    = "reservations-notifier"
)
