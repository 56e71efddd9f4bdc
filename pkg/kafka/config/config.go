package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Brokers  []string
	ClientID string

	// Producer
	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerWriteTimeout time.Duration
	ProducerRequireAcks  int    // -1 all, 0 none, 1 leader
	ProducerCompression  string // none, gzip, snappy, lz4, zstd
	ProducerAsync        bool

	// Consumer
	ConsumerStartOffset       int64 // -1 newest, -2 oldest
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int

	EnableMiddleware bool
}

// Default returns the configuration Load starts from before reading the
// environment.
func Default() *Config {
	return &Config{
		Brokers:                   splitBrokers(DefaultBrokers),
		ClientID:                  DefaultClientID,
		ProducerMaxAttempts:       DefaultRelayMaxAttempts,
		ProducerBatchTimeout:      DefaultRelayBatchTimeout,
		ProducerWriteTimeout:      DefaultRelayWriteTimeout,
		ProducerRequireAcks:       DefaultRelayRequireAcks,
		ProducerCompression:       DefaultRelayCompression,
		ProducerAsync:             DefaultRelayAsync,
		ConsumerStartOffset:       DefaultNotifierStartOffset,
		ConsumerMinBytes:          DefaultNotifierMinBytes,
		ConsumerMaxBytes:          DefaultNotifierMaxBytes,
		ConsumerMaxWait:           DefaultNotifierMaxWait,
		ConsumerCommitInterval:    DefaultNotifierCommitInterval,
		ConsumerHeartbeatInterval: DefaultNotifierHeartbeatInterval,
		ConsumerSessionTimeout:    DefaultNotifierSessionTimeout,
		ConsumerRebalanceTimeout:  DefaultNotifierRebalanceTimeout,
		ConsumerMaxRetries:        DefaultNotifierMaxRetries,
		EnableMiddleware:          DefaultEnableMiddleware,
	}
}

// Load reads KAFKA_* variables over the defaults. Unparseable values fall back
// to the default; out-of-range values fail validation.
func Load() (*Config, error) {
	cfg := Default()

	cfg.Brokers = splitBrokers(getEnvStr(EnvBrokers, DefaultBrokers))
	cfg.ClientID = getEnvStr(EnvClientID, cfg.ClientID)

	cfg.ProducerMaxAttempts = getEnvInt(EnvRelayMaxAttempts, cfg.ProducerMaxAttempts)
	cfg.ProducerBatchTimeout = getEnvDuration(EnvRelayBatchTimeout, cfg.ProducerBatchTimeout)
	cfg.ProducerWriteTimeout = getEnvDuration(EnvRelayWriteTimeout, cfg.ProducerWriteTimeout)
	cfg.ProducerRequireAcks = getEnvInt(EnvRelayRequireAcks, cfg.ProducerRequireAcks)
	cfg.ProducerCompression = strings.ToLower(getEnvStr(EnvRelayCompression, cfg.ProducerCompression))
	cfg.ProducerAsync = getEnvBool(EnvRelayAsync, cfg.ProducerAsync)

	cfg.ConsumerStartOffset = getEnvInt64(EnvNotifierStartOffset, cfg.ConsumerStartOffset)
	cfg.ConsumerMinBytes = getEnvInt(EnvNotifierMinBytes, cfg.ConsumerMinBytes)
	cfg.ConsumerMaxBytes = getEnvInt(EnvNotifierMaxBytes, cfg.ConsumerMaxBytes)
	cfg.ConsumerMaxWait = getEnvDuration(EnvNotifierMaxWait, cfg.ConsumerMaxWait)
	cfg.ConsumerCommitInterval = getEnvDuration(EnvNotifierCommitInterval, cfg.ConsumerCommitInterval)
	cfg.ConsumerHeartbeatInterval = getEnvDuration(EnvNotifierHeartbeatInterval, cfg.ConsumerHeartbeatInterval)
	cfg.ConsumerSessionTimeout = getEnvDuration(EnvNotifierSessionTimeout, cfg.ConsumerSessionTimeout)
	cfg.ConsumerRebalanceTimeout = getEnvDuration(EnvNotifierRebalanceTimeout, cfg.ConsumerRebalanceTimeout)
	cfg.ConsumerMaxRetries = getEnvInt(EnvNotifierMaxRetries, cfg.ConsumerMaxRetries)

	cfg.EnableMiddleware = getEnvBool(EnvEnableMiddleware, cfg.EnableMiddleware)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var problems []string

	if len(cfg.Brokers) == 0 {
		problems = append(problems, "at least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			problems = append(problems, fmt.Sprintf("broker %d cannot be empty", i))
		}
	}

	if cfg.ProducerMaxAttempts <= 0 {
		problems = append(problems, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerWriteTimeout < cfg.ProducerBatchTimeout {
		problems = append(problems, fmt.Sprintf("ProducerWriteTimeout (%s) must not be shorter than ProducerBatchTimeout (%s)", cfg.ProducerWriteTimeout, cfg.ProducerBatchTimeout))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}
	switch cfg.ProducerCompression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		problems = append(problems, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}
	switch cfg.ProducerRequireAcks {
	case -1, 0, 1:
	default:
		problems = append(problems, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	if cfg.ConsumerStartOffset != -1 && cfg.ConsumerStartOffset != -2 {
		problems = append(problems, fmt.Sprintf("ConsumerStartOffset must be -1 (newest) or -2 (oldest), got: %d", cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMinBytes <= 0 || cfg.ConsumerMaxBytes < cfg.ConsumerMinBytes {
		problems = append(problems, fmt.Sprintf("consumer byte bounds invalid: min=%d max=%d", cfg.ConsumerMinBytes, cfg.ConsumerMaxBytes))
	}
	for name, d := range map[string]time.Duration{
		"ConsumerMaxWait":           cfg.ConsumerMaxWait,
		"ConsumerCommitInterval":    cfg.ConsumerCommitInterval,
		"ConsumerHeartbeatInterval": cfg.ConsumerHeartbeatInterval,
		"ConsumerSessionTimeout":    cfg.ConsumerSessionTimeout,
		"ConsumerRebalanceTimeout":  cfg.ConsumerRebalanceTimeout,
	} {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}
	if cfg.ConsumerMaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}

	if len(problems) > 0 {
		return fmt.Errorf("kafka configuration invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LogConfiguration takes the logger's Info method so this package stays free
// of the logger import.
func (cfg *Config) LogConfiguration(logFunc func(msg string, args ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"client_id", cfg.ClientID,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_batch_timeout", cfg.ProducerBatchTimeout,
		"producer_write_timeout", cfg.ProducerWriteTimeout,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"producer_async", cfg.ProducerAsync,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_wait", cfg.ConsumerMaxWait,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
