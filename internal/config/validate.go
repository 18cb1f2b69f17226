package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bnema/keepster-cli/internal/adapters/telemetry"
	"github.com/bnema/keepster-cli/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if c.Recent.Limit < 0 {
		return errors.New("recent.limit must be positive")
	}
	if err := c.validateDeadLetter(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr must be set when metrics.enabled is true")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.CatalogPath == "" {
		return errors.New("library.catalog_path must be set")
	}
	if c.Library.RequestsPerSecond < 0 {
		return errors.New("library.requests_per_second must not be negative")
	}
	if c.Library.Burst < 0 {
		return errors.New("library.burst must not be negative")
	}
	return nil
}

func (c *Config) validateSession() error {
	durations := []struct {
		key   string
		value string
	}{
		{"session.grace", c.Session.Grace},
		{"session.flush_timeout", c.Session.FlushTimeout},
		{"session.analysis_interval", c.Session.AnalysisInterval},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", d.key, d.value)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive", d.key)
		}
	}

	counts := []struct {
		key   string
		value int
	}{
		{"session.batch_size", c.Session.BatchSize},
		{"session.page_size", c.Session.PageSize},
		{"session.membership_page_size", c.Session.MembershipPageSize},
		{"session.low_water", c.Session.LowWater},
		{"session.buffer", c.Session.Buffer},
	}
	for _, count := range counts {
		if count.value <= 0 {
			return fmt.Errorf("%s must be positive", count.key)
		}
	}
	return nil
}

func (c *Config) validateDeadLetter() error {
	switch c.DeadLetter.Backend {
	case DeadLetterFile:
	case DeadLetterRedis, DeadLetterChain:
		if c.DeadLetter.RedisAddr == "" {
			return fmt.Errorf("deadletter.redis_addr must be set when deadletter.backend is %q", c.DeadLetter.Backend)
		}
	default:
		return fmt.Errorf("deadletter.backend: unsupported value %q (use file, redis or chain)", c.DeadLetter.Backend)
	}
	if c.DeadLetter.RedisDB < 0 {
		return errors.New("deadletter.redis_db must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}

func (c *Config) validateTelemetry() error {
	switch c.Telemetry.Exporter {
	case telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterOTLP:
		return nil
	default:
		return fmt.Errorf("telemetry.exporter: unsupported value %q (use none, stdout or otlp)", c.Telemetry.Exporter)
	}
}
