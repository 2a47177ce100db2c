package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  tracking_updated_topic_name: "tracking.updated"
redis:
  host: "localhost"
  port: 6379
service:
  grpc_addr: ":50051"
  http_addr: ":8080"
  kafka_consumer_group: "track-api"
  current_status_ttl_seconds: 120
sync:
  batch_size: 20
  live: false
carriers:
  - code: xpressbees
    api_base_url: "https://xb.test"
  - code: dtdc
    page_url: "https://dtdc.test/track?awb={awb}"
    concurrency: 2
`)

	t.Setenv("CARRIER_XPRESSBEES_API_TOKEN", "secret")

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "tracking.updated", cfg.Kafka.TrackingUpdatedTopicName)
	require.Equal(t, "tracking.webhook", cfg.Kafka.WebhookTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.Service.HTTPAddr)
	require.Equal(t, 120, cfg.Service.CurrentStatusTTLSeconds)

	require.Equal(t, 20, cfg.Sync.BatchSize)
	require.False(t, *cfg.Sync.Live)
	require.Len(t, cfg.Carriers, 2)
	require.Equal(t, "secret", cfg.Carriers[0].APIToken)
	require.Empty(t, cfg.Carriers[1].APIToken)
	require.Equal(t, 2, cfg.Carriers[1].Concurrency)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "service:\n  http_addr: \":8080\"\n"))
	require.NoError(t, err)

	require.Equal(t, 900, cfg.Sync.IntervalSeconds)
	require.Equal(t, 50, cfg.Sync.BatchSize)
	require.Equal(t, 500, cfg.Sync.PageSize)
	require.Equal(t, 3600, cfg.Sync.StalenessSeconds)
	require.Equal(t, 5, cfg.Sync.FailureThreshold)
	require.Equal(t, 15, cfg.Sync.FetchTimeoutSeconds)
	require.Equal(t, 10, cfg.Sync.APIConcurrency)
	require.Equal(t, 3, cfg.Sync.ScrapeConcurrency)
	require.Equal(t, 50, cfg.Sync.MaxTrackBatch)
	require.True(t, *cfg.Sync.Live)
	require.Equal(t, "info", cfg.Service.LogLevel)
	require.Equal(t, 30*24*3600, cfg.Service.NextCheckTerminalSeconds)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestTokenEnvName(t *testing.T) {
	require.Equal(t, "CARRIER_XPRESSBEES_API_TOKEN", TokenEnvName("xpressbees"))
	require.Equal(t, "CARRIER_ECOM_EXPRESS_API_TOKEN", TokenEnvName("ecom-express"))
}

func TestLoadConfig_Sample(t *testing.T) {
	cfg, err := LoadConfig("config.yaml")
	require.NoError(t, err)
	require.Equal(t, "tracking.webhook", cfg.Kafka.WebhookTopicName)
	require.True(t, *cfg.Sync.Live)
	require.NotEmpty(t, cfg.Carriers)
	for _, c := range cfg.Carriers {
		require.NotEmpty(t, c.Code)
		require.True(t, c.APIBaseURL != "" || c.PageURL != "", c.Code)
	}
}
