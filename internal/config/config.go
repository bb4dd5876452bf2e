// Package config provides the configuration schema and loader for the
// tipsheet service.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a [slog.Level]. Unknown levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level"`
	Roster    RosterConfig    `yaml:"roster"`
	Tipouts   TipoutConfig    `yaml:"tipouts"`
	Shifts    ShiftsConfig    `yaml:"shifts"`
	PayPeriod PayPeriodConfig `yaml:"pay_period"`

	// Timezone is the IANA zone used to decide what "today" is when a
	// transcript carries no date. Defaults to UTC.
	Timezone string `yaml:"timezone"`

	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// RosterConfig locates the roster file.
type RosterConfig struct {
	Path string `yaml:"path"`

	// PollInterval is how often the roster file is checked for changes.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// TipoutConfig holds the support tipout rates as fractions of food sales
// (0.05 is 5%). Omitted rates keep their defaults.
type TipoutConfig struct {
	Utility *decimal.Decimal `yaml:"utility"`
	Expo    *decimal.Decimal `yaml:"expo"`
	Busser  *decimal.Decimal `yaml:"busser"`
}

// WindowConfig is a standard shift window as "HH:MM" wall clock times. An
// end at or before the start means the shift closes after midnight.
type WindowConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ShiftsConfig sets the standard windows. AM and PM apply to every day;
// Overrides replaces the window of individual shift codes such as "SaPM".
type ShiftsConfig struct {
	AM        *WindowConfig           `yaml:"am"`
	PM        *WindowConfig           `yaml:"pm"`
	Overrides map[string]WindowConfig `yaml:"overrides"`
}

// PayPeriodConfig defines the payroll periods shifts are filed under.
type PayPeriodConfig struct {
	// Anchor is the first day of any pay period, as YYYY-MM-DD.
	Anchor     string `yaml:"anchor"`
	LengthDays int    `yaml:"length_days"`
}

// StorageConfig selects where validated records go. Both are optional.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	JSONLPath   string `yaml:"jsonl_path"`
}

// MetricsConfig enables the Prometheus endpoint when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Defaults applied by [LoadFromReader] for omitted values.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPayPeriodLen = 7
	DefaultAnchor       = "2024-01-01"
)

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Roster.PollInterval == 0 {
		cfg.Roster.PollInterval = DefaultPollInterval
	}
	if cfg.PayPeriod.Anchor == "" {
		cfg.PayPeriod.Anchor = DefaultAnchor
	}
	if cfg.PayPeriod.LengthDays == 0 {
		cfg.PayPeriod.LengthDays = DefaultPayPeriodLen
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
}

// parseClock parses "HH:MM" into minutes after midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an HH:MM time", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
