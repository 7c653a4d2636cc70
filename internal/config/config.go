// Package config loads nearby's settings from config.yaml, NEARBY_*
// environment variables and built-in defaults.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/nearby/internal/address"
)

// Config holds the full application configuration.
type Config struct {
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Pacing  PacingConfig  `yaml:"pacing" mapstructure:"pacing"`
	Suggest SuggestConfig `yaml:"suggest" mapstructure:"suggest"`
	Ranking RankingConfig `yaml:"ranking" mapstructure:"ranking"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the Nominatim client.
type GeocodeConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	Email            string `yaml:"email" mapstructure:"email"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CountryCode      string `yaml:"country_code" mapstructure:"country_code"`
	CountryName      string `yaml:"country_name" mapstructure:"country_name"`
	CountryQualifier string `yaml:"country_qualifier" mapstructure:"country_qualifier"`
	BreakerFailures  int    `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	// MaxRequestsPerSec caps requests process-wide; 0 leaves them unthrottled.
	MaxRequestsPerSec float64 `yaml:"max_requests_per_sec" mapstructure:"max_requests_per_sec"`
}

// Timeout returns the per-request HTTP timeout.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// Country builds the lookup restriction. The US keeps its full synonym list.
func (g GeocodeConfig) Country() address.Country {
	code := strings.ToLower(strings.TrimSpace(g.CountryCode))
	if code == "" || (code == address.US.Code && g.CountryName == address.US.Name && g.CountryQualifier == address.US.Qualifier) {
		return address.US
	}
	if code == address.US.Code {
		return address.NewCountry(code, g.CountryName, g.CountryQualifier, address.US.Synonyms...)
	}
	return address.NewCountry(code, g.CountryName, g.CountryQualifier)
}

// PacingConfig configures the spacing between geocoding cascades.
type PacingConfig struct {
	DelayMs int `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// Delay returns the spacing as a duration.
func (p PacingConfig) Delay() time.Duration {
	return time.Duration(p.DelayMs) * time.Millisecond
}

// SuggestConfig configures address suggestions.
type SuggestConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	Limit      int `yaml:"limit" mapstructure:"limit"`
}

// Debounce returns the quiet period as a duration.
func (s SuggestConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// RankingConfig configures pass results.
type RankingConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEARBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "nearby-cli/1.0")
	v.SetDefault("geocode.email", "")
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.country_code", "us")
	v.SetDefault("geocode.country_name", "United States")
	v.SetDefault("geocode.country_qualifier", "USA")
	v.SetDefault("geocode.breaker_failures", 5)
	v.SetDefault("geocode.breaker_reset_secs", 60)
	v.SetDefault("geocode.max_requests_per_sec", 0.0)
	v.SetDefault("pacing.delay_ms", 1100)
	v.SetDefault("suggest.debounce_ms", 350)
	v.SetDefault("suggest.limit", 5)
	v.SetDefault("ranking.top_k", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes are "cli" and
// "serve"; "serve" additionally requires a listen port.
func (c *Config) Validate(mode string) error {
	var errs []string
	if strings.TrimSpace(c.Geocode.BaseURL) == "" {
		errs = append(errs, "geocode.base_url is required")
	}
	if strings.TrimSpace(c.Geocode.UserAgent) == "" {
		errs = append(errs, "geocode.user_agent is required")
	}
	if c.Geocode.MaxRequestsPerSec < 0 {
		errs = append(errs, "geocode.max_requests_per_sec must be >= 0")
	}
	if c.Pacing.DelayMs < 0 {
		errs = append(errs, "pacing.delay_ms must be >= 0")
	}
	if c.Suggest.DebounceMs < 0 {
		errs = append(errs, "suggest.debounce_ms must be >= 0")
	}
	if c.Ranking.TopK <= 0 {
		errs = append(errs, "ranking.top_k must be > 0")
	}

	switch mode {
	case "cli":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
