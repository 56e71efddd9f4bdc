package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	kafka_config "reservations/pkg/kafka/config"
	"reservations/pkg/logger"
	"reservations/pkg/model"
	"reservations/pkg/sanitizer"

	"github.com/joho/godotenv"
)

type Config struct {
	FacilityCapacities     map[string]int
	VIPUsers               []string
	NotificationMaxPending int
	RejectPastStart        bool

	Port string

	RequestTimeout  time.Duration
	MaxRequestSize  int
	LongPollTimeout time.Duration
	IdempotencyTTL  time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	KafkaEnabled            bool
	KafkaCancellationsTopic string
	KafkaCancellationsDLQ   string
	KafkaNotifierGroupID    string
	Kafka                   *kafka_config.Config

	Log *logger.Logger
}

// Load reads the environment and exits the process on invalid configuration.
func Load(serviceName string) *Config {
	cfg, err := Parse(serviceName)
	if err != nil {
		log := newLogger(serviceName)
		log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()
	return cfg
}

// Parse is Load without the exit.
func Parse(serviceName string) (*Config, error) {
	if path := os.Getenv(EnvFile); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvFile, err)
		}
	}

	capacities, err := ParseCapacities(getEnvStr(EnvFacilityCapacities, DefaultFacilityCapacities))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvFacilityCapacities, err)
	}

	cfg := &Config{
		FacilityCapacities:     capacities,
		VIPUsers:               ParseUserSet(getEnvStr(EnvVIPUsers, "")),
		NotificationMaxPending: getEnvNum(EnvNotificationMaxPending, DefaultNotificationMaxPending),
		RejectPastStart:        getEnvBool(EnvRejectPastStart, DefaultRejectPastStart),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout:  getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize:  getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),
		LongPollTimeout: getEnvDuration(EnvLongPollTimeout, DefaultLongPollTimeout),
		IdempotencyTTL:  getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		KafkaEnabled:            getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaCancellationsTopic: getEnvStr(EnvKafkaCancellationsTopic, DefaultKafkaCancellationsTopic),
		KafkaCancellationsDLQ:   getEnvStr(EnvKafkaCancellationsDLQ, DefaultKafkaCancellationsDLQ),
		KafkaNotifierGroupID:    getEnvStr(EnvKafkaNotifierGroupID, DefaultKafkaNotifierGroupID),

		Log: newLogger(serviceName),
	}

	if cfg.KafkaEnabled {
		kcfg, err := kafka_config.Load()
		if err != nil {
			return nil, err
		}
		cfg.Kafka = kcfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(serviceName string) *logger.Logger {
	return logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		Format:    logger.Format(getEnvStr(EnvLogFormat, string(logger.JSON))),
		AddSource: true,
		Service:   serviceName,
	})
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.FacilityCapacities) == 0 {
		errors = append(errors, "FacilityCapacities must name at least one facility")
	}
	for name, capacity := range cfg.FacilityCapacities {
		if capacity <= 0 {
			errors = append(errors, fmt.Sprintf("capacity of %s must be positive, got: %d", name, capacity))
		}
	}
	if cfg.NotificationMaxPending < 0 {
		errors = append(errors, fmt.Sprintf("NotificationMaxPending cannot be negative, got: %d", cfg.NotificationMaxPending))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.LongPollTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LongPollTimeout must be positive, got: %s", cfg.LongPollTimeout))
	}
	if cfg.RequestTimeout > 0 && cfg.LongPollTimeout >= cfg.RequestTimeout {
		errors = append(errors, fmt.Sprintf("LongPollTimeout (%s) must be shorter than RequestTimeout (%s)", cfg.LongPollTimeout, cfg.RequestTimeout))
	}
	if cfg.WriteTimeout > 0 && cfg.LongPollTimeout >= cfg.WriteTimeout {
		errors = append(errors, fmt.Sprintf("LongPollTimeout (%s) must be shorter than WriteTimeout (%s)", cfg.LongPollTimeout, cfg.WriteTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.KafkaEnabled {
		if cfg.KafkaCancellationsTopic == "" {
			errors = append(errors, "KafkaCancellationsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaNotifierGroupID == "" {
			errors = append(errors, "KafkaNotifierGroupID cannot be empty when Kafka is enabled")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"facilities", cfg.FacilityCapacities,
		"vip_users", len(cfg.VIPUsers),
		"notification_max_pending", cfg.NotificationMaxPending,
		"reject_past_start", cfg.RejectPastStart,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"long_poll_timeout", cfg.LongPollTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_cancellations_topic", cfg.KafkaCancellationsTopic,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

// ParseCapacities reads "Room=2,Projector=2". Names are normalized like
// requested facility names and must pass model.ValidFacilityName; a repeated
// name is an error.
func ParseCapacities(s string) (map[string]int, error) {
	capacities := make(map[string]int)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		name = sanitizer.NormalizeFacilityName(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed facility entry %q, want name=capacity", entry)
		}
		if !model.ValidFacilityName(name) {
			return nil, fmt.Errorf("facility name %q must start with a letter or digit and use only letters, digits, spaces, '_', '.' or '-' (max 64)", name)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("capacity of %s: %w", name, err)
		}
		if _, dup := capacities[name]; dup {
			return nil, fmt.Errorf("facility %s listed twice", name)
		}
		capacities[name] = capacity
	}
	return capacities, nil
}

// ParseUserSet splits a comma-separated id list, dropping blanks and
// duplicates. The result is sorted.
func ParseUserSet(s string) []string {
	users := sanitizer.NormalizeUserIDs(strings.Split(s, ","))
	slices.Sort(users)
	return users
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
