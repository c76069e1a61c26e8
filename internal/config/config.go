package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Matcher MatcherConfig `yaml:"matcher" mapstructure:"matcher"`
	Route   RouteConfig   `yaml:"route" mapstructure:"route"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// GeocodeConfig configures the geocoding providers.
type GeocodeConfig struct {
	NominatimURL string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MatcherConfig configures entity-resolution thresholds.
type MatcherConfig struct {
	Threshold      float64 `yaml:"threshold" mapstructure:"threshold"`
	TieMargin      float64 `yaml:"tie_margin" mapstructure:"tie_margin"`
	CandidateLimit int     `yaml:"candidate_limit" mapstructure:"candidate_limit"`
}

// RouteConfig configures route optimization.
type RouteConfig struct {
	MaxPasses    int `yaml:"max_passes" mapstructure:"max_passes"`
	TimeBudgetMs int `yaml:"time_budget_ms" mapstructure:"time_budget_ms"`
}

// IngestConfig configures batch ingestion.
type IngestConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers"`
	QueueBuffer int `yaml:"queue_buffer" mapstructure:"queue_buffer"`
}

// RetryConfig configures retry behavior for external calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "leadgen.db")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "leadgen-dashboard/1.0")
	v.SetDefault("geocode.rate_limit_rps", 1.0)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.concurrency", 4)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("matcher.threshold", 0.85)
	v.SetDefault("matcher.tie_margin", 0.05)
	v.SetDefault("matcher.candidate_limit", 25)
	v.SetDefault("route.max_passes", 1000)
	v.SetDefault("route.time_budget_ms", 2000)
	v.SetDefault("ingest.workers", 2)
	v.SetDefault("ingest.queue_buffer", 64)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 250)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.2)
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

// Validate checks the fields the given mode depends on. Mode is the
// command being run: "serve", "import", "plan", "geocode", or "resolve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	if c.Matcher.Threshold <= 0 || c.Matcher.Threshold > 1 {
		problems = append(problems, "matcher.threshold must be in (0, 1]")
	}
	if c.Matcher.TieMargin < 0 || c.Matcher.TieMargin >= 1 {
		problems = append(problems, "matcher.tie_margin must be in [0, 1)")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Ingest.Workers <= 0 || c.Ingest.Workers > 32 {
			problems = append(problems, "ingest.workers must be between 1 and 32")
		}
	case "import", "plan", "geocode", "resolve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
