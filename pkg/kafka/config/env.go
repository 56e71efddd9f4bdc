package kafka_config

// Shared by the relay and the notifier.
const (
	EnvBrokers          = "KAFKA_BROKERS"
	EnvClientID         = "KAFKA_CLIENT_ID"
	EnvEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)

// Cancellation relay (producer side of cmd/reservations).
const (
	EnvRelayMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvRelayBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvRelayWriteTimeout = "KAFKA_PRODUCER_WRITE_TIMEOUT"
	EnvRelayRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvRelayCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvRelayAsync        = "KAFKA_PRODUCER_ASYNC"
)

// Notifier group (cmd/notifier).
const (
	EnvNotifierStartOffset       = "KAFKA_CONSUMER_START_OFFSET"
	EnvNotifierMinBytes          = "KAFKA_CONSUMER_MIN_BYTES"
	EnvNotifierMaxBytes          = "KAFKA_CONSUMER_MAX_BYTES"
	EnvNotifierMaxWait           = "KAFKA_CONSUMER_MAX_WAIT"
	EnvNotifierCommitInterval    = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	EnvNotifierHeartbeatInterval = "KAFKA_CONSUMER_HEARTBEAT_INTERVAL"
	EnvNotifierSessionTimeout    = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	EnvNotifierRebalanceTimeout  = "KAFKA_CONSUMER_REBALANCE_TIMEOUT"
	EnvNotifierMaxRetries        = "KAFKA_CONSUMER_MAX_RETRIES"
)
