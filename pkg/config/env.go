package config

const (
	// EnvFile names an optional dotenv file. Variables already set in the
	// process environment win over the file.
	EnvFile = "ENV_FILE"

	EnvFacilityCapacities     = "FACILITY_CAPACITIES"
	EnvVIPUsers               = "VIP_USERS"
	EnvNotificationMaxPending = "NOTIFICATION_MAX_PENDING"
	EnvRejectPastStart        = "REJECT_PAST_START"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvMaxRequestSize  = "MAX_REQUEST_SIZE"
	EnvLongPollTimeout = "LONG_POLL_TIMEOUT"
	EnvIdempotencyTTL  = "IDEMPOTENCY_TTL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvKafkaEnabled            = "KAFKA_ENABLED"
	EnvKafkaCancellationsTopic = "KAFKA_CANCELLATIONS_TOPIC"
	EnvKafkaCancellationsDLQ   = "KAFKA_CANCELLATIONS_DLQ_TOPIC"
	EnvKafkaNotifierGroupID    = "KAFKA_NOTIFIER_GROUP_ID"
)
