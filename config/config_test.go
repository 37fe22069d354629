package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("TX_MAX_ATTEMPTS", "1")
	t.Setenv("CHECK_IN_GRACE", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.TxMaxAttempts, "attempts are floored at three")
	assert.Equal(t, 15*time.Minute, cfg.CheckInGrace)
	assert.Equal(t, "*/5 * * * *", cfg.ExpirySchedule)
	assert.Equal(t, "parking.reservation.events", cfg.EventQueue)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := Load()
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPass: "p", DBHost: "db", DBPort: "3307", DBName: "parking"}
	assert.Equal(t, "u:p@tcp(db:3307)/parking?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())

	cfg.DBPass = ""
	assert.Equal(t, "u@tcp(db:3307)/parking?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}

func TestDebugSQL(t *testing.T) {
	t.Setenv("DEBUG_SQL", "on")
	assert.True(t, DebugSQL())
	t.Setenv("DEBUG_SQL", "garbage")
	assert.False(t, DebugSQL())
}
