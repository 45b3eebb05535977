package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
app:
  env: development
  port: 8080
  shutdown_timeout: 15s
mongo:
  uri: mongodb://localhost:27017
  db: chatbox
redis:
  addr: localhost:6379
kafka:
  brokers: [localhost:9092]
  topic: chat-events
jwt:
  secret: test-secret
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != 8080 || cfg.App.PortString() != "8080" {
		t.Errorf("port = %d", cfg.App.Port)
	}
	if cfg.App.ShutdownDuration() != 15*time.Second {
		t.Errorf("shutdown = %v", cfg.App.ShutdownDuration())
	}
	if cfg.Mongo.DB != "chatbox" {
		t.Errorf("mongo db = %q", cfg.Mongo.DB)
	}
	// defaults
	if cfg.Kafka.GroupID != "chatbox-server" {
		t.Errorf("kafka group = %q", cfg.Kafka.GroupID)
	}
	if cfg.JWT.TTLHours != 24 {
		t.Errorf("jwt ttl = %d", cfg.JWT.TTLHours)
	}
	if cfg.RateWindow() != 10*time.Second {
		t.Errorf("rate window = %v", cfg.RateWindow())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONGO_DB", "chatbox_test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.App.Port)
	}
	if cfg.Mongo.DB != "chatbox_test" {
		t.Errorf("mongo db = %q", cfg.Mongo.DB)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadFileRejectsIncomplete(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no port", `
mongo: {uri: mongodb://localhost, db: chatbox}
redis: {addr: localhost:6379}
kafka: {brokers: [localhost:9092], topic: chat-events}
jwt: {secret: s}
`},
		{"no jwt secret", `
app: {port: 8080}
mongo: {uri: mongodb://localhost, db: chatbox}
redis: {addr: localhost:6379}
kafka: {brokers: [localhost:9092], topic: chat-events}
`},
		{"no mongo uri", `
app: {port: 8080}
redis: {addr: localhost:6379}
kafka: {brokers: [localhost:9092], topic: chat-events}
jwt: {secret: s}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestShutdownDurationFallback(t *testing.T) {
	a := App{ShutdownTimeout: "bogus"}
	if a.ShutdownDuration() != 10*time.Second {
		t.Errorf("fallback = %v", a.ShutdownDuration())
	}
}
