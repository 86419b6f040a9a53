package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/startups")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3301", cfg.HTTPPort)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPAttempts)
	assert.Equal(t, "startup-media", cfg.Minio.Bucket)
	assert.Empty(t, cfg.Minio.Endpoint)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/startups")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadDatabaseConfig_IgnoresServerSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/startups")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadDatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/startups", cfg.DatabaseURL)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
}

func TestLoadConfig_EmbedsDatabaseSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/startups")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/startups", cfg.DatabaseURL)
	assert.Equal(t, int32(25), cfg.DatabaseConfig.MaxConns)
}
