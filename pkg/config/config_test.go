package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseCapacities(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]int
		wantErr bool
	}{
		{name: "default", input: "Room=2,Projector=2", want: map[string]int{"Room": 2, "Projector": 2}},
		{name: "whitespace and trailing comma", input: " Room = 3 , Studio=1,", want: map[string]int{"Room": 3, "Studio": 1}},
		{name: "empty", input: "", want: map[string]int{}},
		{name: "missing separator", input: "Room", wantErr: true},
		{name: "missing name", input: "=2", wantErr: true},
		{name: "not a number", input: "Room=two", wantErr: true},
		{name: "duplicate", input: "Room=1,Room=2", wantErr: true},
		{name: "duplicate after normalizing", input: "Board Room=1,Board  Room=2", wantErr: true},
		{name: "inner whitespace collapsed", input: "Board\tRoom=2", want: map[string]int{"Board Room": 2}},
		{name: "non-ascii name", input: "Salão=2", wantErr: true},
		{name: "punctuation", input: "Room#2=2", wantErr: true},
		{name: "slash", input: "Sala Magna/1=2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCapacities(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCapacities() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseCapacities() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("capacity[%s] = %d, want %d", k, got[k], v)
				}
			}
		})
	}
}

func TestParseUserSet(t *testing.T) {
	got := ParseUserSet(" dana, carol ,,dana")
	if strings.Join(got, ",") != "carol,dana" {
		t.Errorf("ParseUserSet() = %v", got)
	}
	if len(ParseUserSet("")) != 0 {
		t.Errorf("expected empty set")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse("test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.FacilityCapacities["Room"] != 2 || cfg.FacilityCapacities["Projector"] != 2 {
		t.Errorf("unexpected capacities %v", cfg.FacilityCapacities)
	}
	if !cfg.RejectPastStart {
		t.Errorf("past starts should be rejected by default")
	}
	if cfg.KafkaEnabled || cfg.Kafka != nil {
		t.Errorf("kafka should be disabled by default")
	}
	if cfg.Log == nil {
		t.Errorf("logger not initialized")
	}
}

func TestParse_FromEnv(t *testing.T) {
	t.Setenv(EnvFacilityCapacities, "Studio=4")
	t.Setenv(EnvVIPUsers, "dana")
	t.Setenv(EnvLongPollTimeout, "3s")
	t.Setenv(EnvKafkaEnabled, "true")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")

	cfg, err := Parse("test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.FacilityCapacities["Studio"] != 4 || len(cfg.FacilityCapacities) != 1 {
		t.Errorf("unexpected capacities %v", cfg.FacilityCapacities)
	}
	if len(cfg.VIPUsers) != 1 || cfg.VIPUsers[0] != "dana" {
		t.Errorf("unexpected vip users %v", cfg.VIPUsers)
	}
	if cfg.LongPollTimeout != 3*time.Second {
		t.Errorf("LongPollTimeout = %s", cfg.LongPollTimeout)
	}
	if cfg.Kafka == nil || cfg.Kafka.Brokers[0] != "kafka:9092" {
		t.Errorf("kafka config not loaded: %+v", cfg.Kafka)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{name: "zero capacity", env: map[string]string{EnvFacilityCapacities: "Room=0"}, wantMsg: "capacity of Room"},
		{name: "malformed capacities", env: map[string]string{EnvFacilityCapacities: "Room"}, wantMsg: EnvFacilityCapacities},
		{name: "no facilities", env: map[string]string{EnvFacilityCapacities: " , "}, wantMsg: "at least one facility"},
		{name: "bad port", env: map[string]string{EnvPort: "99999"}, wantMsg: "Port"},
		{name: "long poll outlives write", env: map[string]string{EnvLongPollTimeout: "20s", EnvWriteTimeout: "5s"}, wantMsg: "LongPollTimeout"},
		{name: "negative mailbox", env: map[string]string{EnvNotificationMaxPending: "-1"}, wantMsg: "NotificationMaxPending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse("test")
			if err == nil {
				t.Fatalf("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParse_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.env")
	content := "VIP_USERS=dana\nNOTIFICATION_MAX_PENDING=7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	// The file sets process variables; t.Setenv restores them afterwards.
	t.Setenv(EnvVIPUsers, "")
	os.Unsetenv(EnvVIPUsers)
	t.Setenv(EnvNotificationMaxPending, "3")
	t.Setenv(EnvFile, path)

	cfg, err := Parse("test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if strings.Join(cfg.VIPUsers, ",") != "dana" {
		t.Errorf("VIPUsers = %v, want [dana]", cfg.VIPUsers)
	}
	if cfg.NotificationMaxPending != 3 {
		t.Errorf("NotificationMaxPending = %d, environment must win over the file", cfg.NotificationMaxPending)
	}
}

func TestParse_MissingEnvFile(t *testing.T) {
	t.Setenv(EnvFile, filepath.Join(t.TempDir(), "missing.env"))

	if _, err := Parse("test"); err == nil || !strings.Contains(err.Error(), EnvFile) {
		t.Errorf("expected %s error, got %v", EnvFile, err)
	}
}
