package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 5*time.Minute, cfg.Booking.LockTTL)
	assert.Equal(t, 15*time.Minute, cfg.Booking.PaymentHoldTTL)
	assert.Equal(t, "same-booking", cfg.Booking.PaymentHoldOverride)
	assert.Equal(t, 30*time.Second, cfg.Worker.SweepInterval)
	assert.Equal(t, "mock", cfg.Payments.Provider)
	assert.Equal(t, "none", cfg.Events.Driver)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
port: 4000
booking:
  lock_ttl: 2m
  max_seats_per_request: 6
events:
  driver: kafka
  brokers: ["kafka-1:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("SEATS_PORT", "4100")
	t.Setenv("SEATS_BOOKING_PAYMENT_HOLD_OVERRIDE", "any")
	t.Setenv("SEATS_WORKER_SWEEP_INTERVAL", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4100, cfg.Port, "environment wins over the file")
	assert.Equal(t, 2*time.Minute, cfg.Booking.LockTTL)
	assert.Equal(t, 6, cfg.Booking.MaxSeatsPerRequest)
	assert.Equal(t, "any", cfg.Booking.PaymentHoldOverride)
	assert.Equal(t, 10*time.Second, cfg.Worker.SweepInterval)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Events.Brokers)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown override policy", env: map[string]string{"SEATS_BOOKING_PAYMENT_HOLD_OVERRIDE": "never"}},
		{name: "stripe without keys", env: map[string]string{"SEATS_PAYMENTS_PROVIDER": "stripe"}},
		{name: "kafka without brokers", env: map[string]string{"SEATS_EVENTS_DRIVER": "kafka"}},
		{name: "unknown events driver", env: map[string]string{"SEATS_EVENTS_DRIVER": "smoke-signals"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
