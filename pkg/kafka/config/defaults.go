package kafka_config

import "time"

const (
	DefaultBrokers  = "localhost:9092"
	DefaultClientID = "reservations"
)

// A cancellation is small and must not be lost, so the relay waits for every
// replica and batches only briefly.
const (
	DefaultRelayMaxAttempts  = 5
	DefaultRelayBatchTimeout = 5 * time.Millisecond
	DefaultRelayWriteTimeout = 10 * time.Second
	DefaultRelayRequireAcks  = -1
	DefaultRelayCompression  = "snappy"
	DefaultRelayAsync        = false
)

const (
	// Oldest, so a fresh notifier group replays pending cancellations.
	DefaultNotifierStartOffset       int64 = -2
	DefaultNotifierMinBytes                = 1
	DefaultNotifierMaxBytes                = 1 << 20
	DefaultNotifierMaxWait                 = 500 * time.Millisecond
	DefaultNotifierCommitInterval          = time.Second
	DefaultNotifierHeartbeatInterval       = 3 * time.Second
	DefaultNotifierSessionTimeout          = 10 * time.Second
	DefaultNotifierRebalanceTimeout        = 30 * time.Second
	DefaultNotifierMaxRetries              = 3
)

const DefaultEnableMiddleware = true
