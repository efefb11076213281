// Package config provides configuration management for the HKJC advisor.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/yourusername/hkjc-advisor/internal/features"
	"github.com/yourusername/hkjc-advisor/internal/strategy"
)

// Config represents the complete application configuration
type Config struct {
	App     AppConfig     `mapstructure:"app" validate:"required"`
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Engine  EngineConfig  `mapstructure:"engine" validate:"required"`
	Cache   CacheConfig   `mapstructure:"cache" validate:"required"`
	Client  ClientConfig  `mapstructure:"client" validate:"required"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the IPC server configuration
type ServerConfig struct {
	Host                string  `mapstructure:"host"`
	Port                int     `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds  int     `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int     `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	IdleTimeoutSeconds  int     `mapstructure:"idle_timeout_seconds" validate:"required,gt=0"`
	RateLimit           float64 `mapstructure:"rate_limit" validate:"gte=0"` // requests per second, 0 disables
	RateBurst           int     `mapstructure:"rate_burst" validate:"gte=0"`
	MaxPayloadBytes     int64   `mapstructure:"max_payload_bytes" validate:"required,gt=0"`
	AuthToken           string  `mapstructure:"auth_token"`
}

// EngineConfig represents the feature extraction and recommendation constants
type EngineConfig struct {
	ProbabilityWeight   float64 `mapstructure:"probability_weight" validate:"gte=0,lte=1"`
	FormWeight          float64 `mapstructure:"form_weight" validate:"gte=0,lte=1"`
	FormDecay           float64 `mapstructure:"form_decay" validate:"gt=0,lte=1"`
	NeutralFormScore    float64 `mapstructure:"neutral_form_score" validate:"gte=0,lte=1"`
	HighConfidenceGap   float64 `mapstructure:"high_confidence_gap" validate:"gt=0,lte=1"`
	MediumConfidenceGap float64 `mapstructure:"medium_confidence_gap" validate:"gte=0,lte=1"`
	PlacePositions      int     `mapstructure:"place_positions" validate:"required,gt=0"`
	MinPlaceProbability float64 `mapstructure:"min_place_probability" validate:"gt=0,lte=1"`
}

// CacheConfig represents advice cache configuration
type CacheConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	TTLSeconds          int    `mapstructure:"ttl_seconds" validate:"required,gt=0"`
	MaxSize             int    `mapstructure:"max_size" validate:"required,gt=0"`
	MaintenanceSchedule string `mapstructure:"maintenance_schedule" validate:"required"`
}

// ClientConfig represents the remote advisor client configuration
type ClientConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	AuthToken         string  `mapstructure:"auth_token"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SecretsConfig locates the optional AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ExtractorParams returns the feature extraction parameters
func (c *Config) ExtractorParams() features.Params {
	return features.Params{
		FormDecay:         c.Engine.FormDecay,
		NeutralFormScore:  c.Engine.NeutralFormScore,
		ProbabilityWeight: c.Engine.ProbabilityWeight,
		FormWeight:        c.Engine.FormWeight,
	}
}

// Thresholds returns the recommendation thresholds
func (c *Config) Thresholds() strategy.Thresholds {
	return strategy.Thresholds{
		HighGap:             c.Engine.HighConfidenceGap,
		MediumGap:           c.Engine.MediumConfidenceGap,
		PlacePositions:      c.Engine.PlacePositions,
		MinPlaceProbability: c.Engine.MinPlaceProbability,
	}
}

// ServerAddr returns the listen address of the IPC server
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// CacheTTL returns the advice cache TTL
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// ClientTimeout returns the remote client request timeout
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}
