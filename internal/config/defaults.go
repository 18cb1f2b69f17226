package config

const (
	defaultConfigPath         = "~/.config/keepster/config.toml"
	defaultCatalogPath        = "~/.local/share/keepster/catalog.db"
	defaultRequestsPerSecond  = 0
	defaultBurst              = 4
	defaultGrace              = "60s"
	defaultBatchSize          = 12
	defaultPageSize           = 80
	defaultMembershipPageSize = 200
	defaultLowWater           = 50
	defaultBuffer             = 20
	defaultFlushTimeout       = "30s"
	defaultAnalysisInterval   = "30s"
	defaultRecentPath         = "~/.config/keepster/recent.toml"
	defaultRecentLimit        = 8
	defaultDeadLetterBackend  = DeadLetterFile
	defaultDeadLetterDir      = "~/.local/share/keepster/deadletter"
	defaultRedisAddr          = "127.0.0.1:6379"
	defaultRedisPrefix        = "keepster:deadletter:"
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
	defaultTelemetryExporter  = "none"
	defaultServiceName        = "keepster"
	defaultMetricsAddr        = "127.0.0.1:9464"
)

const (
	DeadLetterFile  = "file"
	DeadLetterRedis = "redis"
	DeadLetterChain = "chain"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Library: Library{
			CatalogPath:       defaultCatalogPath,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
		},
		Session: Session{
			Grace:              defaultGrace,
			BatchSize:          defaultBatchSize,
			PageSize:           defaultPageSize,
			MembershipPageSize: defaultMembershipPageSize,
			LowWater:           defaultLowWater,
			Buffer:             defaultBuffer,
			FlushTimeout:       defaultFlushTimeout,
			AnalysisInterval:   defaultAnalysisInterval,
		},
		Recent: Recent{
			Path:  defaultRecentPath,
			Limit: defaultRecentLimit,
		},
		DeadLetter: DeadLetter{
			Backend:     defaultDeadLetterBackend,
			Dir:         defaultDeadLetterDir,
			RedisAddr:   defaultRedisAddr,
			RedisPrefix: defaultRedisPrefix,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Telemetry: Telemetry{
			Exporter:    defaultTelemetryExporter,
			ServiceName: defaultServiceName,
		},
		Metrics: Metrics{
			Addr: defaultMetricsAddr,
		},
	}
}
