package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.HTTP.Port)
	assert.Equal(t, DriverBadger, cfg.Store.Driver)
	assert.Equal(t, "./data/badger", cfg.Store.BadgerPath)
	assert.True(t, cfg.Store.Migrate)
	assert.Equal(t, 25*time.Second, cfg.Realtime.KeepAliveInterval)
	assert.Equal(t, 64, cfg.Realtime.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.Realtime.WriteTimeout)
	assert.Empty(t, cfg.Relay.KafkaBrokers)
	assert.Equal(t, "asn-events", cfg.Relay.KafkaTopic)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "asn.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http:
  port: "8080"
store:
  driver: postgres
  postgres_dsn: postgresql://asn:secret@db:5432/asn
realtime:
  keepalive_interval: 5s
`), 0o600))

	t.Setenv("ASN_REALTIME_QUEUE_SIZE", "16")
	t.Setenv("ASN_RELAY_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ASN_LOG_LEVEL", "workflow:debug,*:info")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgresql://asn:secret@db:5432/asn", cfg.Store.PostgresDSN)
	assert.Equal(t, 5*time.Second, cfg.Realtime.KeepAliveInterval)
	assert.Equal(t, 16, cfg.Realtime.QueueSize)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Relay.KafkaBrokers)
	assert.Equal(t, "workflow:debug,*:info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateBasic(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:     HTTPConfig{Port: "4000"},
			Store:    StoreConfig{Driver: DriverBadger, InMemory: true},
			Realtime: RealtimeConfig{KeepAliveInterval: time.Second, QueueSize: 1, WriteTimeout: time.Second},
			Relay:    RelayConfig{KafkaTopic: "asn-events"},
		}
	}
	c := valid()
	require.NoError(t, c.ValidateBasic())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no port", func(c *Config) { c.HTTP.Port = "" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"badger without path", func(c *Config) { c.Store.InMemory = false }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"zero keepalive", func(c *Config) { c.Realtime.KeepAliveInterval = 0 }},
		{"zero queue", func(c *Config) { c.Realtime.QueueSize = 0 }},
		{"brokers without topic", func(c *Config) {
			c.Relay.KafkaBrokers = []string{"k:9092"}
			c.Relay.KafkaTopic = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.ValidateBasic())
		})
	}
}
