package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parseFrom(map[string]string{
		"DISCORD_TOKEN": "token",
		"DATABASE_URL":  "postgres://localhost:5432",
	})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.GateCheckTimeout)
	assert.Equal(t, 10*time.Second, cfg.RedemptionTimeout)
	assert.Equal(t, 10, cfg.RedeemsLogLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.NATSServers)
	assert.Empty(t, cfg.AdminIDs)
	assert.False(t, cfg.OTelEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := parseFrom(map[string]string{
		"DISCORD_TOKEN":      "token",
		"DATABASE_URL":       "postgres://localhost:5432",
		"DATABASE_NAME":      "rewards",
		"ADMIN_IDS":          "10,20",
		"BASE_URL":           "https://rewards.example.com/",
		"GATE_CHECK_TIMEOUT": "2s",
		"REDEEMS_LOG_LIMIT":  "25",
		"ENVIRONMENT":        "production",
		"NATS_SERVERS":       "nats://nats:4222",
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 20}, cfg.AdminIDs)
	assert.Equal(t, "https://rewards.example.com", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.GateCheckTimeout)
	assert.Equal(t, 25, cfg.RedeemsLogLimit)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "nats://nats:4222", cfg.NATSServers)
	assert.Equal(t, "postgres://localhost:5432/rewards?sslmode=disable", cfg.GetDatabaseURL())
}

func TestParse_DatabaseURLKeepsExplicitSSLMode(t *testing.T) {
	cfg, err := parseFrom(map[string]string{
		"DISCORD_TOKEN": "token",
		"DATABASE_URL":  "postgres://db:5432?sslmode=require",
		"DATABASE_NAME": "rewards",
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/rewards?sslmode=require", cfg.GetDatabaseURL())
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"missing token", map[string]string{"DATABASE_URL": "postgres://localhost"}},
		{"missing database", map[string]string{"DISCORD_TOKEN": "token"}},
		{"bad admin id", map[string]string{"DISCORD_TOKEN": "token", "DATABASE_URL": "postgres://localhost", "ADMIN_IDS": "abc"}},
		{"zero log limit", map[string]string{"DISCORD_TOKEN": "token", "DATABASE_URL": "postgres://localhost", "REDEEMS_LOG_LIMIT": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFrom(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestParse_TestEnvironmentSkipsRequired(t *testing.T) {
	cfg, err := parseFrom(map[string]string{"ENVIRONMENT": "test"})
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
}

func TestSetTestConfig(t *testing.T) {
	defer ResetConfig()

	testConfig := NewTestConfig()
	testConfig.AdminIDs = []int64{1, 2}
	SetTestConfig(testConfig)

	assert.Same(t, testConfig, Get())
}
