package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, uint32(1), cfg.KDFTime)
	assert.Equal(t, uint32(64*1024), cfg.KDFMemoryKiB)
	assert.Equal(t, uint8(4), cfg.KDFThreads)
	assert.Equal(t, "aes-gcm", cfg.AEADAlgorithm)
	assert.Equal(t, "flavortown,hackatime", cfg.VaultServices)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_TTL_SECONDS", "30")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("VAULT_SERVICES", "flavortown")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.SessionTTL)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "flavortown", cfg.VaultServices)
	assert.Equal(t, "debug", cfg.GetGinMode())
}

func TestGetGinMode(t *testing.T) {
	cfg := &Config{LogLevel: "info"}
	assert.Equal(t, "release", cfg.GetGinMode())

	cfg.LogLevel = "debug"
	assert.Equal(t, "debug", cfg.GetGinMode())
}
