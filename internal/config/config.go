package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"CapIot.dashboard/internal/models"
)

// Config holds the application's configuration.
type Config struct {
	Port             string        `mapstructure:"port"`
	StatsAPIURL      string        `mapstructure:"stats_api_url"`
	StatsAPITimeout  time.Duration `mapstructure:"stats_api_timeout"`
	ApartmentID      string        `mapstructure:"apartment_id"`
	ReferenceDate    string        `mapstructure:"reference_date"`
	PercentMode      string        `mapstructure:"percent_mode"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	AllowedOrigins   string        `mapstructure:"allowed_origins"`
	LogLevel         string        `mapstructure:"log_level"`

	InfluxDBURL    string `mapstructure:"influxdb_url"`
	InfluxDBToken  string `mapstructure:"influxdb_token"`
	InfluxDBOrg    string `mapstructure:"influxdb_org"`
	InfluxDBBucket string `mapstructure:"influxdb_bucket"`

	Auth0Issuer   string `mapstructure:"auth0_issuer"`
	Auth0Audience string `mapstructure:"auth0_audience"`

	// Reference is the parsed REFERENCE_DATE; zero means "use the system clock".
	Reference time.Time `mapstructure:"-"`
}

var defaults = map[string]any{
	"port":              "8000",
	"stats_api_url":     "",
	"stats_api_timeout": "10s",
	"apartment_id":      "1",
	"reference_date":    "",
	"percent_mode":      "one_decimal",
	"fetch_concurrency": 4,
	"allowed_origins":   "http://localhost:5173",
	"log_level":         "info",
	"influxdb_url":      "",
	"influxdb_token":    "",
	"influxdb_org":      "",
	"influxdb_bucket":   "dashboard",
	"auth0_issuer":      "",
	"auth0_audience":    "",
}

// LoadConfig loads .env, an optional config.yaml and the environment, in
// increasing order of precedence.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on system environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StatsAPIURL == "" {
		return errors.New("STATS_API_URL is required")
	}
	if c.StatsAPITimeout <= 0 {
		return fmt.Errorf("STATS_API_TIMEOUT must be positive, got %s", c.StatsAPITimeout)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	switch strings.ToLower(c.PercentMode) {
	case "one_decimal", "integer":
	default:
		return fmt.Errorf("PERCENT_MODE must be one_decimal or integer, got %q", c.PercentMode)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	influx := []string{c.InfluxDBURL, c.InfluxDBToken, c.InfluxDBOrg}
	if set := countSet(influx...); set != 0 && set != len(influx) {
		return errors.New("InfluxDB configuration is incomplete. Please set INFLUXDB_URL, INFLUXDB_TOKEN, and INFLUXDB_ORG environment variables")
	}
	if set := countSet(c.Auth0Issuer, c.Auth0Audience); set == 1 {
		return errors.New("Auth0 configuration is incomplete. Please set both AUTH0_ISSUER and AUTH0_AUDIENCE")
	}

	if c.ReferenceDate != "" {
		ref, err := parseReferenceDate(c.ReferenceDate)
		if err != nil {
			return err
		}
		c.Reference = ref
	}
	return nil
}

// InfluxEnabled reports whether snapshots should be written to InfluxDB.
func (c Config) InfluxEnabled() bool {
	return c.InfluxDBURL != ""
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func parseReferenceDate(s string) (time.Time, error) {
	for _, layout := range []string{models.DateLayout, models.DateTimeLayout, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("REFERENCE_DATE %q is not a date (want %s)", s, models.DateLayout)
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level string) *slog.Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
