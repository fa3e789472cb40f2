package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
app:
  name: gigbook-workers
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    port: 5432
    database: gigbook
    user: ${GIGBOOK_TEST_DB_USER}
  redis:
    address: localhost:6379
workers:
  check-musician-conflicts:
    enabled: true
    timeout: 5000
engine:
  pricing:
    base_rates:
      guitarra: 50
      DJ: 70
    location_multipliers:
      madrid: 1.2
geo:
  locations:
    madrid:
      lat: 40.4168
      lon: -3.7038
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("GIGBOOK_TEST_DB_USER", "gigbook_app")

	cfg, err := LoadFromFile(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "gigbook_app", cfg.Database.Postgres.User)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, ":8080", cfg.App.HTTPAddress)

	assert.Equal(t, 12, cfg.Engine.Availability.SearchWindowHours)
	assert.Equal(t, 30, cfg.Engine.Availability.DefaultTravelTimeMinutes)
	assert.Equal(t, 60, cfg.Engine.Availability.DefaultBufferTimeMinutes)
	assert.Equal(t, 8, cfg.Engine.Availability.WorkdayStartHour)
	assert.Equal(t, 24, cfg.Engine.Availability.WorkdayEndHour)
	assert.Equal(t, "postgres", cfg.Engine.Matching.ProfileSource)
	assert.Equal(t, 50.0, cfg.Engine.Pricing.DefaultBaseRate)

	// viper lower-cases map keys
	assert.Equal(t, 70.0, cfg.Engine.Pricing.BaseRates["dj"])
	assert.Equal(t, 1.2, cfg.Engine.Pricing.LocationMultipliers["madrid"])
	assert.InDelta(t, 40.4168, cfg.Geo.Locations["madrid"].Lat, 1e-9)

	wc := GetWorkerConfig(cfg, "check-musician-conflicts")
	assert.True(t, wc.Enabled)
	assert.Equal(t, 5000, wc.Timeout)
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 3, wc.MaxRetries)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "elasticsearch profile source without cluster",
			body: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
				"engine:\n  matching:\n    profile_source: elasticsearch\n",
			wantErr: "database.elasticsearch.addresses is required",
		},
		{
			name: "sns enabled without topic",
			body: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
				"integrations:\n  aws:\n    sns:\n      enabled: true\n",
			wantErr: "match_ranked_topic_arn is required",
		},
		{
			name: "inverted workday",
			body: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
				"engine:\n  availability:\n    workday_start_hour: 20\n    workday_end_hour: 9\n",
			wantErr: "workday hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"calculate-musician-rate": {Enabled: false},
	}}
	assert.False(t, IsWorkerEnabled(cfg, "calculate-musician-rate"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))
}
