// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Engine        EngineConfig            `mapstructure:"engine"`
	Geo           GeoConfig               `mapstructure:"geo"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	MusicianIndex string   `mapstructure:"musician_index"`
}

// Enabled reports whether an Elasticsearch cluster is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return len(e.Addresses) > 0
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// IntegrationConfig holds settings for outbound event publishing.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled             bool   `mapstructure:"enabled"`
			MatchRankedTopicARN string `mapstructure:"match_ranked_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// --- Engine Configuration ---

type EngineConfig struct {
	Availability AvailabilityConfig `mapstructure:"availability"`
	Matching     MatchingConfig     `mapstructure:"matching"`
	Pricing      PricingConfig      `mapstructure:"pricing"`
}

type AvailabilityConfig struct {
	SearchWindowHours        int `mapstructure:"search_window_hours"`
	DefaultTravelTimeMinutes int `mapstructure:"default_travel_time_minutes"`
	DefaultBufferTimeMinutes int `mapstructure:"default_buffer_time_minutes"`
	MaxConcurrency           int `mapstructure:"max_concurrency"`
	WorkdayStartHour         int `mapstructure:"workday_start_hour"`
	WorkdayEndHour           int `mapstructure:"workday_end_hour"`
}

type MatchingConfig struct {
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	QuoteRates     bool   `mapstructure:"quote_rates"`
	ProfileSource  string `mapstructure:"profile_source"` // postgres | elasticsearch
}

type PricingConfig struct {
	DefaultBaseRate            float64            `mapstructure:"default_base_rate"`
	BaseRates                  map[string]float64 `mapstructure:"base_rates"`
	LocationMultipliers        map[string]float64 `mapstructure:"location_multipliers"`
	EventTypeMultipliers       map[string]float64 `mapstructure:"event_type_multipliers"`
	CompetitorRateLimit        int                `mapstructure:"competitor_rate_limit"`
	MarketCacheTTLSeconds      int                `mapstructure:"market_cache_ttl_seconds"`
	PerformanceCacheTTLSeconds int                `mapstructure:"performance_cache_ttl_seconds"`
	DemandLookbackDays         int                `mapstructure:"demand_lookback_days"`
	HighDemandBookingCount     int                `mapstructure:"high_demand_booking_count"`
	MediumDemandBookingCount   int                `mapstructure:"medium_demand_booking_count"`
}

// GeoConfig lists the known city coordinates used for distance estimation.
type GeoConfig struct {
	Locations map[string]Coordinates `mapstructure:"locations"`
}

type Coordinates struct {
	Lat float64 `mapstructure:"lat"`
	Lon float64 `mapstructure:"lon"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds OpenTelemetry settings.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
