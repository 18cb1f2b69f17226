package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "KEEPSTER"
	EnvConfigPath = "KEEPSTER_CONFIG"
)

// Library locates the photo catalog.
type Library struct {
	CatalogPath       string  `toml:"catalog_path" mapstructure:"catalog_path"`
	TrashDir          string  `toml:"trash_dir" mapstructure:"trash_dir"`
	RequestsPerSecond float64 `toml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `toml:"burst" mapstructure:"burst"`
}

// Session holds the review engine tunables. Durations use Go syntax ("60s").
type Session struct {
	Grace              string `toml:"grace" mapstructure:"grace"`
	BatchSize          int    `toml:"batch_size" mapstructure:"batch_size"`
	PageSize           int    `toml:"page_size" mapstructure:"page_size"`
	MembershipPageSize int    `toml:"membership_page_size" mapstructure:"membership_page_size"`
	LowWater           int    `toml:"low_water" mapstructure:"low_water"`
	Buffer             int    `toml:"buffer" mapstructure:"buffer"`
	FlushTimeout       string `toml:"flush_timeout" mapstructure:"flush_timeout"`
	AnalysisInterval   string `toml:"analysis_interval" mapstructure:"analysis_interval"`
}

type Recent struct {
	Path  string `toml:"path" mapstructure:"path"`
	Limit int    `toml:"limit" mapstructure:"limit"`
}

// DeadLetter selects where failed delete batches are kept.
type DeadLetter struct {
	// Backend is "file", "redis", or "chain" (redis first, file fallback).
	Backend       string `toml:"backend" mapstructure:"backend"`
	Dir           string `toml:"dir" mapstructure:"dir"`
	RedisAddr     string `toml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `toml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `toml:"redis_db" mapstructure:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix" mapstructure:"redis_prefix"`
}

type Logging struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
	File   string `toml:"file" mapstructure:"file"`
}

type Telemetry struct {
	Exporter    string `toml:"exporter" mapstructure:"exporter"`
	Endpoint    string `toml:"endpoint" mapstructure:"endpoint"`
	ServiceName string `toml:"service_name" mapstructure:"service_name"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Addr    string `toml:"addr" mapstructure:"addr"`
}

// Config encapsulates all configuration values for keepster.
type Config struct {
	Library    Library    `toml:"library" mapstructure:"library"`
	Session    Session    `toml:"session" mapstructure:"session"`
	Recent     Recent     `toml:"recent" mapstructure:"recent"`
	DeadLetter DeadLetter `toml:"deadletter" mapstructure:"deadletter"`
	Logging    Logging    `toml:"logging" mapstructure:"logging"`
	Telemetry  Telemetry  `toml:"telemetry" mapstructure:"telemetry"`
	Metrics    Metrics    `toml:"metrics" mapstructure:"metrics"`
}

// Loaded is a validated config plus the viper instance it came from, which
// adapters that read their own keys share.
type Loaded struct {
	Config *Config
	Viper  *viper.Viper
	Path   string
	Exists bool
}

func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the TOML file at path (or KEEPSTER_CONFIG, or the default
// location), applies KEEPSTER_* environment overrides, then normalizes and
// validates the result. A missing file yields defaults.
func Load(path string) (*Loaded, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if exists {
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Adapters read these keys straight from viper.
	v.Set("recent.path", cfg.Recent.Path)
	v.Set("recent.limit", cfg.Recent.Limit)

	return &Loaded{Config: &cfg, Viper: v, Path: resolved, Exists: exists}, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file omits a section.
func setDefaults(v *viper.Viper, cfg Config) {
	defaults := map[string]any{
		"library.catalog_path":         cfg.Library.CatalogPath,
		"library.trash_dir":            cfg.Library.TrashDir,
		"library.requests_per_second":  cfg.Library.RequestsPerSecond,
		"library.burst":                cfg.Library.Burst,
		"session.grace":                cfg.Session.Grace,
		"session.batch_size":           cfg.Session.BatchSize,
		"session.page_size":            cfg.Session.PageSize,
		"session.membership_page_size": cfg.Session.MembershipPageSize,
		"session.low_water":            cfg.Session.LowWater,
		"session.buffer":               cfg.Session.Buffer,
		"session.flush_timeout":        cfg.Session.FlushTimeout,
		"session.analysis_interval":    cfg.Session.AnalysisInterval,
		"recent.path":                  cfg.Recent.Path,
		"recent.limit":                 cfg.Recent.Limit,
		"deadletter.backend":           cfg.DeadLetter.Backend,
		"deadletter.dir":               cfg.DeadLetter.Dir,
		"deadletter.redis_addr":        cfg.DeadLetter.RedisAddr,
		"deadletter.redis_password":    cfg.DeadLetter.RedisPassword,
		"deadletter.redis_db":          cfg.DeadLetter.RedisDB,
		"deadletter.redis_prefix":      cfg.DeadLetter.RedisPrefix,
		"logging.level":                cfg.Logging.Level,
		"logging.format":               cfg.Logging.Format,
		"logging.file":                 cfg.Logging.File,
		"telemetry.exporter":           cfg.Telemetry.Exporter,
		"telemetry.endpoint":           cfg.Telemetry.Endpoint,
		"telemetry.service_name":       cfg.Telemetry.ServiceName,
		"metrics.enabled":              cfg.Metrics.Enabled,
		"metrics.addr":                 cfg.Metrics.Addr,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		expanded, err := expandPath(path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(expanded); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(expanded); err != nil {
			return fmt.Errorf("load env file %s: %w", expanded, err)
		}
	}
	return nil
}

// CreateSample writes the default configuration to path. Existing files are
// left alone unless force is set.
func CreateSample(path string, force bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(expanded); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", expanded)
		}
	}

	data, err := Encode(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func Encode(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func (c *Config) GraceDuration() time.Duration {
	return mustDuration(c.Session.Grace)
}

func (c *Config) FlushTimeoutDuration() time.Duration {
	return mustDuration(c.Session.FlushTimeout)
}

func (c *Config) AnalysisIntervalDuration() time.Duration {
	return mustDuration(c.Session.AnalysisInterval)
}

// mustDuration is only called on validated configs.
func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func expandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
