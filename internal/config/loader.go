package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jflaig13/mise-core-sub000/internal/distribution"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Roster.Path == "" {
		errs = append(errs, errors.New("roster.path is required"))
	}
	if cfg.Roster.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("roster.poll_interval %s must not be negative", cfg.Roster.PollInterval))
	}

	for _, rate := range []struct {
		name string
		v    *decimal.Decimal
	}{
		{"utility", cfg.Tipouts.Utility},
		{"expo", cfg.Tipouts.Expo},
		{"busser", cfg.Tipouts.Busser},
	} {
		if rate.v != nil && (rate.v.IsNegative() || rate.v.GreaterThanOrEqual(decimal.NewFromInt(1))) {
			errs = append(errs, fmt.Errorf("tipouts.%s %s is out of range [0, 1)", rate.name, rate.v))
		}
	}

	if _, err := cfg.Schedule(); err != nil {
		errs = append(errs, err)
	}

	if _, err := time.Parse("2006-01-02", cfg.PayPeriod.Anchor); err != nil {
		errs = append(errs, fmt.Errorf("pay_period.anchor %q is not a YYYY-MM-DD date", cfg.PayPeriod.Anchor))
	}
	if cfg.PayPeriod.LengthDays < 1 {
		errs = append(errs, fmt.Errorf("pay_period.length_days %d must be at least 1", cfg.PayPeriod.LengthDays))
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", cfg.Timezone, err))
	}

	return errors.Join(errs...)
}

// Percentages returns the tipout rates, with defaults for omitted ones.
func (c *Config) Percentages() distribution.Percentages {
	p := distribution.DefaultPercentages()
	if c.Tipouts.Utility != nil {
		p.Utility = *c.Tipouts.Utility
	}
	if c.Tipouts.Expo != nil {
		p.Expo = *c.Tipouts.Expo
	}
	if c.Tipouts.Busser != nil {
		p.Busser = *c.Tipouts.Busser
	}
	return p
}

// Schedule builds the standard window of every shift code.
func (c *Config) Schedule() (shift.Schedule, error) {
	var errs []error
	am, pm := shift.DefaultAM, shift.DefaultPM
	if c.Shifts.AM != nil {
		w, err := window(*c.Shifts.AM)
		if err != nil {
			errs = append(errs, fmt.Errorf("shifts.am: %w", err))
		}
		am = w
	}
	if c.Shifts.PM != nil {
		w, err := window(*c.Shifts.PM)
		if err != nil {
			errs = append(errs, fmt.Errorf("shifts.pm: %w", err))
		}
		pm = w
	}

	s := make(shift.Schedule, 14)
	for _, code := range shift.Codes() {
		if code.Period() == shift.AM {
			s[code] = am
		} else {
			s[code] = pm
		}
	}

	codes := make([]string, 0, len(c.Shifts.Overrides))
	for code := range c.Shifts.Overrides {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if !shift.Code(code).IsValid() {
			errs = append(errs, fmt.Errorf("shifts.overrides: %q is not a shift code", code))
			continue
		}
		w, err := window(c.Shifts.Overrides[code])
		if err != nil {
			errs = append(errs, fmt.Errorf("shifts.overrides.%s: %w", code, err))
			continue
		}
		s[shift.Code(code)] = w
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

func window(wc WindowConfig) (shift.Window, error) {
	start, err := parseClock(wc.Start)
	if err != nil {
		return shift.Window{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseClock(wc.End)
	if err != nil {
		return shift.Window{}, fmt.Errorf("end: %w", err)
	}
	if end <= start {
		end += 24 * 60
	}
	return shift.Window{Start: start, End: end}, nil
}

// Anchor returns the parsed pay period anchor. It is only meaningful on a
// validated config.
func (c *Config) Anchor() time.Time {
	t, _ := time.Parse("2006-01-02", c.PayPeriod.Anchor)
	return t
}

// Location returns the configured time zone, or UTC when it cannot be
// loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
