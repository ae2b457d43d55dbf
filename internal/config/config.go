package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v8"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Services   ServicesConfig   `yaml:"services"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Drafts     DraftsConfig     `yaml:"drafts"`
	AWS        AWSConfig        `yaml:"aws"`
	OTEL       OTELConfig       `yaml:"otel"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int           `yaml:"port" env:"SERVER_PORT"`
	Host           string        `yaml:"host" env:"SERVER_HOST"`
	AllowedOrigins string        `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT"`
}

// DatabaseConfig holds the coin ledger database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
}

// RedisConfig holds the draft store configuration
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// AuthConfig holds bearer verification and identity provider settings
type AuthConfig struct {
	// JWTSecret verifies HS256 tokens; PublicKeyPEM verifies RS256 tokens from the identity provider
	JWTSecret    string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	PublicKeyPEM string        `yaml:"public_key_pem" env:"AUTH_PUBLIC_KEY_PEM"`
	Issuer       string        `yaml:"issuer" env:"AUTH_ISSUER"`
	TokenURL     string        `yaml:"token_url" env:"AUTH_TOKEN_URL"`
	LogoutURL    string        `yaml:"logout_url" env:"AUTH_LOGOUT_URL"`
	ClientID     string        `yaml:"client_id" env:"AUTH_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"AUTH_CLIENT_SECRET"`
	MinValidity  time.Duration `yaml:"min_validity" env:"AUTH_MIN_VALIDITY"`
}

// ServicesConfig holds the base URL of every backend the gateway calls
type ServicesConfig struct {
	Review         string        `yaml:"review" env:"REVIEW_SERVICE_URL"`
	User           string        `yaml:"user" env:"USER_SERVICE_URL"`
	Restaurant     string        `yaml:"restaurant" env:"RESTAURANT_SERVICE_URL"`
	Food           string        `yaml:"food" env:"FOOD_SERVICE_URL"`
	Visit          string        `yaml:"visit" env:"VISIT_SERVICE_URL"`
	Hangout        string        `yaml:"hangout" env:"HANGOUT_SERVICE_URL"`
	Recommendation string        `yaml:"recommendation" env:"RECOMM_AGENT_URL"`
	Nutrition      string        `yaml:"nutrition" env:"NUTRITION_AGENT_URL"`
	Timeout        time.Duration `yaml:"timeout" env:"SERVICES_TIMEOUT"`
	AgentTimeout   time.Duration `yaml:"agent_timeout" env:"SERVICES_AGENT_TIMEOUT"`
}

// AggregatorConfig bounds the view-model fan-out
type AggregatorConfig struct {
	FanoutLimit int           `yaml:"fanout_limit" env:"AGGREGATOR_FANOUT_LIMIT"`
	MemoSize    int           `yaml:"memo_size" env:"AGGREGATOR_MEMO_SIZE"`
	MemoTTL     time.Duration `yaml:"memo_ttl" env:"AGGREGATOR_MEMO_TTL"`
}

// LedgerConfig holds coin prices and reservation housekeeping
type LedgerConfig struct {
	RecommendationCost int64         `yaml:"recommendation_cost" env:"LEDGER_RECOMMENDATION_COST"`
	NutritionCost      int64         `yaml:"nutrition_cost" env:"LEDGER_NUTRITION_COST"`
	StartingBalance    int64         `yaml:"starting_balance" env:"LEDGER_STARTING_BALANCE"`
	ReservationTTL     time.Duration `yaml:"reservation_ttl" env:"LEDGER_RESERVATION_TTL"`
	SweepInterval      time.Duration `yaml:"sweep_interval" env:"LEDGER_SWEEP_INTERVAL"`
}

// DraftsConfig holds scratch pad settings
type DraftsConfig struct {
	TTL time.Duration `yaml:"ttl" env:"DRAFTS_TTL"`
}

// AWSConfig holds S3 upload configuration
type AWSConfig struct {
	Region    string `yaml:"region" env:"AWS_REGION"`
	S3Bucket  string `yaml:"s3_bucket" env:"AWS_S3_BUCKET"`
	AccessKey string `yaml:"access_key" env:"AWS_ACCESS_KEY_ID"`
	SecretKey string `yaml:"secret_key" env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint  string `yaml:"endpoint" env:"AWS_S3_ENDPOINT"`
	PublicURL string `yaml:"public_url" env:"AWS_S3_PUBLIC_URL"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	Enabled        bool   `yaml:"enabled" env:"OTEL_ENABLED"`
	Endpoint       string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	ServiceVersion string `yaml:"service_version" env:"OTEL_SERVICE_VERSION"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Defaults returns the configuration used for every setting the file and environment leave out.
// The file and environment are decoded over it, so an explicit zero is kept.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: "*",
			RequestTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Port: 5432, SSLMode: "disable"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Auth:     AuthConfig{MinValidity: 30 * time.Second},
		Services: ServicesConfig{
			Timeout:      10 * time.Second,
			AgentTimeout: 60 * time.Second,
		},
		Aggregator: AggregatorConfig{
			FanoutLimit: 16,
			MemoSize:    1024,
			MemoTTL:     5 * time.Minute,
		},
		Ledger: LedgerConfig{
			RecommendationCost: 1,
			NutritionCost:      1,
			StartingBalance:    20,
			ReservationTTL:     10 * time.Minute,
			SweepInterval:      time.Minute,
		},
		Drafts: DraftsConfig{TTL: 24 * time.Hour},
		OTEL:   OTELConfig{ServiceName: "foodhub-gateway"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, then applies environment overrides.
// A missing file is not an error when the environment carries the settings.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every backend is addressable and limits are sane
func (c *Config) Validate() error {
	required := map[string]string{
		"services.review":         c.Services.Review,
		"services.user":           c.Services.User,
		"services.restaurant":     c.Services.Restaurant,
		"services.food":           c.Services.Food,
		"services.visit":          c.Services.Visit,
		"services.hangout":        c.Services.Hangout,
		"services.recommendation": c.Services.Recommendation,
		"services.nutrition":      c.Services.Nutrition,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("config: %s is required", name)
		}
	}

	durations := map[string]time.Duration{
		"server.request_timeout": c.Server.RequestTimeout,
		"services.timeout":       c.Services.Timeout,
		"services.agent_timeout": c.Services.AgentTimeout,
		"aggregator.memo_ttl":    c.Aggregator.MemoTTL,
		"ledger.reservation_ttl": c.Ledger.ReservationTTL,
		"ledger.sweep_interval":  c.Ledger.SweepInterval,
		"drafts.ttl":             c.Drafts.TTL,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}

	if c.Aggregator.FanoutLimit <= 0 || c.Aggregator.MemoSize <= 0 {
		return fmt.Errorf("config: aggregator limits must be positive")
	}
	if c.Ledger.RecommendationCost < 0 || c.Ledger.NutritionCost < 0 {
		return fmt.Errorf("config: ledger costs must not be negative")
	}
	if c.Ledger.StartingBalance < 0 {
		return fmt.Errorf("config: ledger.starting_balance must not be negative")
	}
	// the sweeper must never release a reservation whose agent call can still succeed
	if c.Ledger.ReservationTTL <= c.Services.AgentTimeout {
		return fmt.Errorf("config: ledger.reservation_ttl (%s) must exceed services.agent_timeout (%s)",
			c.Ledger.ReservationTTL, c.Services.AgentTimeout)
	}
	if c.Auth.JWTSecret == "" && c.Auth.PublicKeyPEM == "" {
		return fmt.Errorf("config: auth.jwt_secret or auth.public_key_pem is required")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
