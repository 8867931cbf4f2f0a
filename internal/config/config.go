// Package config loads the tempalert YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/petrijr/tempalert/pkg/activities"
	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverBolt   = "bolt"

	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Duration is a time.Duration written as a Go duration string ("15s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Log         LogConfig         `yaml:"log"`
	MetricsAddr string            `yaml:"metrics_addr,omitempty"`
	Activities  ActivitiesConfig  `yaml:"activities"`
	LightZone   LightZoneConfig   `yaml:"lightzone"`
	Temperature TemperatureConfig `yaml:"temperature"`
}

type StoreConfig struct {
	// Driver is one of memory, sqlite, redis, bolt, postgres or mongo.
	Driver string `yaml:"driver"`
	// DSN is the SQLite or PostgreSQL data source name.
	DSN string `yaml:"dsn,omitempty"`
	// Path is the bbolt database file.
	Path        string `yaml:"path,omitempty"`
	RedisAddr   string `yaml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`

	MongoURI      string `yaml:"mongo_uri,omitempty"`
	MongoDatabase string `yaml:"mongo_database,omitempty"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

type ActivitiesConfig struct {
	// EscalationFailures is how many escalation emails the simulated mailer
	// fails. Negative disables the failures.
	EscalationFailures int `yaml:"escalation_failures"`
}

type LightZoneConfig struct {
	LightMaxThreshold    float64  `yaml:"light_max_threshold"`
	BatteryMinThreshold  float64  `yaml:"battery_min_threshold"`
	BatteryChildID       string   `yaml:"battery_child_id"`
	ResponseTimeout      Duration `yaml:"response_timeout"`
	ActivityTimeout      Duration `yaml:"activity_timeout"`
	NotificationEmail    string   `yaml:"notification_email"`
	NotificationTemplate string   `yaml:"notification_template"`
}

type TemperatureConfig struct {
	ThresholdDelta      float64     `yaml:"threshold_delta"`
	ThresholdTimeWindow Duration    `yaml:"threshold_time_window"`
	ResponseWaitWindow  Duration    `yaml:"response_wait_window"`
	TransporterEmail    string      `yaml:"transporter_email"`
	TransporterPhone    string      `yaml:"transporter_phone"`
	EscalationEmails    []string    `yaml:"escalation_emails"`
	EscalationPhones    []string    `yaml:"escalation_phones"`
	EscalationRetry     RetryConfig `yaml:"escalation_retry"`
	ActivityTimeout     Duration    `yaml:"activity_timeout"`
}

type RetryConfig struct {
	InitialInterval Duration `yaml:"initial_interval"`
	MaximumInterval Duration `yaml:"maximum_interval"`
	MaximumAttempts int      `yaml:"maximum_attempts"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:      DriverSQLite,
			DSN:         "file:tempalert.db?_pragma=busy_timeout(5000)",
			Path:        "tempalert.bolt",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "tempalert:",

			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "tempalert",
		},
		Log:        LogConfig{Level: "info", Format: "text"},
		Activities: ActivitiesConfig{EscalationFailures: activities.DefaultEscalationFailures},
		LightZone: LightZoneConfig{
			LightMaxThreshold:    100,
			BatteryMinThreshold:  20,
			BatteryChildID:       monitor.DefaultBatteryChildID,
			ResponseTimeout:      Duration(monitor.DefaultResponseTimeout),
			ActivityTimeout:      Duration(monitor.DefaultActivityTimeout),
			NotificationEmail:    monitor.DefaultNotificationEmail,
			NotificationTemplate: monitor.DefaultNotificationTemplate,
		},
		Temperature: TemperatureConfig{
			ThresholdDelta:      5,
			ThresholdTimeWindow: Duration(15 * time.Second),
			ResponseWaitWindow:  Duration(20 * time.Second),
			TransporterEmail:    monitor.DefaultTransporterEmail,
			TransporterPhone:    monitor.DefaultTransporterPhone,
			EscalationEmails:    append([]string(nil), monitor.DefaultEscalationEmails...),
			EscalationPhones:    append([]string(nil), monitor.DefaultEscalationPhones...),
			EscalationRetry: RetryConfig{
				InitialInterval: Duration(5 * time.Second),
				MaximumInterval: Duration(30 * time.Second),
				MaximumAttempts: 3,
			},
			ActivityTimeout: Duration(monitor.DefaultActivityTimeout),
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for sqlite"))
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for redis"))
		}
	case DriverBolt:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for bolt"))
		}
	case DriverPostgres:
		if c.Store.DSN == "" || strings.HasPrefix(c.Store.DSN, "file:") {
			errs = append(errs, errors.New("store.dsn must be a postgres connection string"))
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("store.mongo_uri is required for mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}

	if c.LightZone.ResponseTimeout <= 0 {
		errs = append(errs, errors.New("lightzone.response_timeout must be positive"))
	}
	if c.Temperature.ThresholdTimeWindow <= 0 {
		errs = append(errs, errors.New("temperature.threshold_time_window must be positive"))
	}
	if c.Temperature.ResponseWaitWindow <= 0 {
		errs = append(errs, errors.New("temperature.response_wait_window must be positive"))
	}
	if c.Temperature.EscalationRetry.MaximumAttempts < 1 {
		errs = append(errs, errors.New("temperature.escalation_retry.maximum_attempts must be at least 1"))
	}

	return errors.Join(errs...)
}

// LightZoneInput builds the workflow input from the configuration.
func (c Config) LightZoneInput() monitor.LightZoneInput {
	lz := c.LightZone
	return monitor.LightZoneInput{
		LightMaxThreshold:    lz.LightMaxThreshold,
		BatteryMinThreshold:  lz.BatteryMinThreshold,
		BatteryChildID:       lz.BatteryChildID,
		ResponseTimeout:      lz.ResponseTimeout.Std(),
		ActivityTimeout:      lz.ActivityTimeout.Std(),
		NotificationEmail:    lz.NotificationEmail,
		NotificationTemplate: lz.NotificationTemplate,
	}
}

// TemperatureInput builds the workflow input from the configuration.
func (c Config) TemperatureInput() monitor.TemperatureInput {
	tc := c.Temperature
	return monitor.TemperatureInput{
		ThresholdDelta:      tc.ThresholdDelta,
		ThresholdTimeWindow: tc.ThresholdTimeWindow.Std(),
		ResponseWaitWindow:  tc.ResponseWaitWindow.Std(),
		TransporterEmail:    tc.TransporterEmail,
		TransporterPhone:    tc.TransporterPhone,
		EscalationEmails:    append([]string(nil), tc.EscalationEmails...),
		EscalationPhones:    append([]string(nil), tc.EscalationPhones...),
		EscalationRetry: api.Retry(tc.EscalationRetry.MaximumAttempts).
			WithExponentialBackoff(tc.EscalationRetry.InitialInterval.Std(), 2, tc.EscalationRetry.MaximumInterval.Std()).
			Policy(),
		ActivityTimeout: tc.ActivityTimeout.Std(),
	}
}

// NewLogger returns a logger writing to w in the configured format and level.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
