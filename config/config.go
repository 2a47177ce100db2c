package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/AlekSi/pointer"
	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig  `yaml:"database"`
	Kafka    KafkaConfig     `yaml:"kafka"`
	Redis    RedisConfig     `yaml:"redis"`
	Service  ServiceConfig   `yaml:"service"`
	Sync     SyncConfig      `yaml:"sync"`
	Carriers []CarrierConfig `yaml:"carriers"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	TrackingUpdatedTopicName string `yaml:"tracking_updated_topic_name"`
	WebhookTopicName         string `yaml:"webhook_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ServiceConfig struct {
	GRPCAddr                string `yaml:"grpc_addr"`
	HTTPAddr                string `yaml:"http_addr"`
	WorkerHTTPAddr          string `yaml:"worker_http_addr"`
	KafkaConsumerGroup      string `yaml:"kafka_consumer_group"`
	CurrentStatusTTLSeconds int    `yaml:"current_status_ttl_seconds"`
	LogLevel                string `yaml:"log_level"`

	// FakeCarriers подменяет всех перевозчиков детерминированной заглушкой (локальные стенды).
	FakeCarriers bool `yaml:"fake_carriers"`

	// Re-check scheduling. Defaults: active 15 min + up to 15 min jitter, terminal 30 days,
	// failure backoff 5/15/30/60 minutes.
	NextCheckActiveSeconds   int `yaml:"next_check_active_seconds"`
	NextCheckJitterSeconds   int `yaml:"next_check_jitter_seconds"`
	NextCheckTerminalSeconds int `yaml:"next_check_terminal_seconds"`
	Backoff1Seconds          int `yaml:"backoff_1_seconds"`
	Backoff2Seconds          int `yaml:"backoff_2_seconds"`
	Backoff3Seconds          int `yaml:"backoff_3_seconds"`
	Backoff4Seconds          int `yaml:"backoff_4_seconds"`
}

type SyncConfig struct {
	IntervalSeconds     int   `yaml:"interval_seconds"`
	BatchSize           int   `yaml:"batch_size"`
	PageSize            int   `yaml:"page_size"`
	StalenessSeconds    int   `yaml:"staleness_seconds"`
	FailureThreshold    int   `yaml:"failure_threshold"`
	FetchTimeoutSeconds int   `yaml:"fetch_timeout_seconds"`
	APIConcurrency      int   `yaml:"api_concurrency"`
	ScrapeConcurrency   int   `yaml:"scrape_concurrency"`
	Live                *bool `yaml:"live"`
	MaxTrackBatch       int   `yaml:"max_track_batch"`
	LockTTLSeconds      int   `yaml:"lock_ttl_seconds"`
	RunOnStart          bool  `yaml:"run_on_start"`
}

// CarrierConfig overrides a built-in carrier or declares a new one.
// A token selects the API strategy, otherwise PageURL selects scraping.
type CarrierConfig struct {
	Code    string   `yaml:"code"`
	Aliases []string `yaml:"aliases"`

	APIBaseURL   string `yaml:"api_base_url"`
	APITrackPath string `yaml:"api_track_path"`
	APIToken     string `yaml:"api_token"`
	AuthHeader   string `yaml:"auth_header"`
	AuthScheme   string `yaml:"auth_scheme"`

	PageURL           string   `yaml:"page_url"`
	StatusSelectors   []string `yaml:"status_selectors"`
	LocationSelectors []string `yaml:"location_selectors"`
	TimeSelectors     []string `yaml:"time_selectors"`

	Concurrency        int   `yaml:"concurrency"`
	RateLimitPerMinute int64 `yaml:"rate_limit_per_minute"`
	Disabled           bool  `yaml:"disabled"`
}

func LoadConfig(filename string) (*Config, error) {
	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	config.overlayEnv()
	config.applyDefaults()
	return &config, nil
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// TokenEnvName returns the env var holding a carrier token, e.g. CARRIER_XPRESSBEES_API_TOKEN.
func TokenEnvName(code string) string {
	return "CARRIER_" + nonAlnum.ReplaceAllString(strings.ToUpper(code), "_") + "_API_TOKEN"
}

func (c *Config) overlayEnv() {
	for i := range c.Carriers {
		if v := os.Getenv(TokenEnvName(c.Carriers[i].Code)); v != "" {
			c.Carriers[i].APIToken = v
		}
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

func defaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func (c *Config) applyDefaults() {
	s := &c.Sync
	defaultInt(&s.IntervalSeconds, 900)
	defaultInt(&s.BatchSize, 50)
	defaultInt(&s.PageSize, 500)
	defaultInt(&s.StalenessSeconds, 3600)
	defaultInt(&s.FailureThreshold, 5)
	defaultInt(&s.FetchTimeoutSeconds, 15)
	defaultInt(&s.APIConcurrency, 10)
	defaultInt(&s.ScrapeConcurrency, 3)
	defaultInt(&s.MaxTrackBatch, 50)
	defaultInt(&s.LockTTLSeconds, 1800)
	if s.Live == nil {
		s.Live = pointer.ToBool(true)
	}

	svc := &c.Service
	defaultInt(&svc.CurrentStatusTTLSeconds, 600)
	defaultInt(&svc.NextCheckActiveSeconds, 900)
	defaultInt(&svc.NextCheckJitterSeconds, 900)
	defaultInt(&svc.NextCheckTerminalSeconds, 30*24*3600)
	defaultInt(&svc.Backoff1Seconds, 5*60)
	defaultInt(&svc.Backoff2Seconds, 15*60)
	defaultInt(&svc.Backoff3Seconds, 30*60)
	defaultInt(&svc.Backoff4Seconds, 60*60)
	if svc.LogLevel == "" {
		svc.LogLevel = "info"
	}

	if c.Kafka.TrackingUpdatedTopicName == "" {
		c.Kafka.TrackingUpdatedTopicName = "tracking.updated"
	}
	if c.Kafka.WebhookTopicName == "" {
		c.Kafka.WebhookTopicName = "tracking.webhook"
	}
}
