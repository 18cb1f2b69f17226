package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSession()
	c.DeadLetter.Backend = strings.ToLower(strings.TrimSpace(c.DeadLetter.Backend))
	c.DeadLetter.RedisAddr = strings.TrimSpace(c.DeadLetter.RedisAddr)
	if c.DeadLetter.RedisPrefix == "" {
		c.DeadLetter.RedisPrefix = defaultRedisPrefix
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Telemetry.Exporter = strings.ToLower(strings.TrimSpace(c.Telemetry.Exporter))
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = defaultTelemetryExporter
	}
	c.Telemetry.Endpoint = strings.TrimSpace(c.Telemetry.Endpoint)
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
	c.Metrics.Addr = strings.TrimSpace(c.Metrics.Addr)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Library.CatalogPath) == "" {
		c.Library.CatalogPath = defaultCatalogPath
	}
	if c.Library.CatalogPath, err = expandPath(c.Library.CatalogPath); err != nil {
		return fmt.Errorf("library.catalog_path: %w", err)
	}
	if c.Library.TrashDir, err = expandPath(c.Library.TrashDir); err != nil {
		return fmt.Errorf("library.trash_dir: %w", err)
	}
	if strings.TrimSpace(c.Recent.Path) == "" {
		c.Recent.Path = defaultRecentPath
	}
	if c.Recent.Path, err = expandPath(c.Recent.Path); err != nil {
		return fmt.Errorf("recent.path: %w", err)
	}
	if strings.TrimSpace(c.DeadLetter.Dir) == "" {
		c.DeadLetter.Dir = defaultDeadLetterDir
	}
	if c.DeadLetter.Dir, err = expandPath(c.DeadLetter.Dir); err != nil {
		return fmt.Errorf("deadletter.dir: %w", err)
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeSession() {
	c.Session.Grace = strings.TrimSpace(c.Session.Grace)
	if c.Session.Grace == "" {
		c.Session.Grace = defaultGrace
	}
	c.Session.FlushTimeout = strings.TrimSpace(c.Session.FlushTimeout)
	if c.Session.FlushTimeout == "" {
		c.Session.FlushTimeout = defaultFlushTimeout
	}
	c.Session.AnalysisInterval = strings.TrimSpace(c.Session.AnalysisInterval)
	if c.Session.AnalysisInterval == "" {
		c.Session.AnalysisInterval = defaultAnalysisInterval
	}
	if c.Recent.Limit == 0 {
		c.Recent.Limit = defaultRecentLimit
	}
}
