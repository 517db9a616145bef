package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTRefreshExpiration)
	assert.Equal(t, "http://localhost:8000", cfg.MLServiceURL)
	assert.NotEqual(t, cfg.JWTSecret, cfg.JWTRefreshSecret)
	assert.Contains(t, cfg.DatabaseURL, "postgres://")
	assert.True(t, cfg.WSJoinOwnershipCheck)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromEnv_DayDurations(t *testing.T) {
	t.Setenv("JWT_REFRESH_EXPIRATION", "30d")
	t.Setenv("JWT_EXPIRATION", "1h")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTRefreshExpiration)
	assert.Equal(t, time.Hour, cfg.JWTExpiration)
}

func TestFromEnv_ReleaseRequiresSecrets(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("ML_TIMEOUT", "soon")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "ML_TIMEOUT")

	t.Setenv("ML_TIMEOUT", "")
	t.Setenv("WS_JOIN_OWNERSHIP_CHECK", "maybe")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "WS_JOIN_OWNERSHIP_CHECK")
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitCSV(" a:9092, ,b:9092 "))
	assert.Empty(t, splitCSV(""))
}
