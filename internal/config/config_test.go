package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"foodhub-gateway/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
auth:
  jwt_secret: secret
services:
  review: http://review:8081
  user: http://user:8082
  restaurant: http://restaurant:8083
  food: http://food:8084
  visit: http://visit:8085
  hangout: http://hangout:8086
  recommendation: http://recomm:8020
  nutrition: http://nutrition:8022
aggregator:
  memo_ttl: 90s
ledger:
  nutrition_cost: 2
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 90*time.Second, cfg.Aggregator.MemoTTL)
	assert.Equal(t, 16, cfg.Aggregator.FanoutLimit)
	assert.Equal(t, int64(2), cfg.Ledger.NutritionCost)
	assert.Equal(t, int64(1), cfg.Ledger.RecommendationCost)
	assert.Equal(t, 30*time.Second, cfg.Auth.MinValidity)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("USER_SERVICE_URL", "http://users.internal")
	t.Setenv("AGGREGATOR_FANOUT_LIMIT", "4")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://users.internal", cfg.Services.User)
	assert.Equal(t, 4, cfg.Aggregator.FanoutLimit)
	assert.Equal(t, "http://review:8081", cfg.Services.Review)
}

func TestLoad_MissingServiceFails(t *testing.T) {
	_, err := config.Load(writeConfig(t, "auth:\n  jwt_secret: s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}

func TestLoad_ExplicitZeroIsKept(t *testing.T) {
	body := sampleYAML + "  starting_balance: 0\n  recommendation_cost: 0\n"
	cfg, err := config.Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, int64(0), cfg.Ledger.StartingBalance)
	assert.Equal(t, int64(0), cfg.Ledger.RecommendationCost)
	assert.Equal(t, int64(2), cfg.Ledger.NutritionCost)
}

func TestLoad_ReservationMustOutliveAgentCalls(t *testing.T) {
	t.Setenv("LEDGER_RESERVATION_TTL", "30s")
	t.Setenv("SERVICES_AGENT_TIMEOUT", "60s")

	_, err := config.Load(writeConfig(t, sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reservation_ttl")

	t.Setenv("LEDGER_RESERVATION_TTL", "2m")
	_, err = config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
}

func TestLoad_RejectsZeroDurations(t *testing.T) {
	t.Setenv("DRAFTS_TTL", "0s")
	_, err := config.Load(writeConfig(t, sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drafts.ttl")
}

func TestDSN(t *testing.T) {
	db := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ledger sslmode=disable", db.DSN())
}
