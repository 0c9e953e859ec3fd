package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Graph store backends.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Config holds application configuration, read from defaults, an optional
// kgeditor.yaml, KGEDITOR_* environment variables and command line flags, in
// increasing order of precedence.
type Config struct {
	Addr           string        `mapstructure:"addr"`            // KGEDITOR_ADDR, default ":8080"
	Source         string        `mapstructure:"source"`          // KGEDITOR_SOURCE, "local" or "remote"
	DBPath         string        `mapstructure:"db"`              // KGEDITOR_DB, default "kgeditor.db"
	KGURL          string        `mapstructure:"kg_url"`          // KGEDITOR_KG_URL, required for remote
	KGTimeout      time.Duration `mapstructure:"kg_timeout"`      // KGEDITOR_KG_TIMEOUT, default 30s
	InstancePrefix string        `mapstructure:"instance_prefix"` // KGEDITOR_INSTANCE_PREFIX
	InferenceUser  string        `mapstructure:"inference_user"`  // KGEDITOR_INFERENCE_USER, optional
	AuthToken      string        `mapstructure:"auth_token"`      // KGEDITOR_AUTH_TOKEN, optional
	RedisAddr      string        `mapstructure:"redis_addr"`      // KGEDITOR_REDIS_ADDR, empty disables the cache
	RedisDB        int           `mapstructure:"redis_db"`        // KGEDITOR_REDIS_DB
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`       // KGEDITOR_CACHE_TTL, default 10m
	LogLevel       string        `mapstructure:"log_level"`       // KGEDITOR_LOG_LEVEL, default "info"
}

// Load reads the configuration. path names an explicit config file; when
// empty, kgeditor.yaml is looked up in the working directory and skipped if
// absent. flags may be nil; flags that were set override every other source
// and bind to the key of the same name with dashes read as underscores.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("source", SourceLocal)
	v.SetDefault("db", "kgeditor.db")
	v.SetDefault("kg_url", "")
	v.SetDefault("kg_timeout", 30*time.Second)
	v.SetDefault("instance_prefix", "https://kg.ebrains.eu/api/instances/")
	v.SetDefault("inference_user", "")
	v.SetDefault("auth_token", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", 10*time.Minute)
	v.SetDefault("log_level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kgeditor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KGEDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if !strings.HasSuffix(cfg.InstancePrefix, "/") {
		cfg.InstancePrefix += "/"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceLocal:
		if c.DBPath == "" {
			return errors.New("db is required for the local source")
		}
	case SourceRemote:
		if c.KGURL == "" {
			return errors.New("kg_url is required for the remote source")
		}
	default:
		return fmt.Errorf("unknown source %q, want %q or %q", c.Source, SourceLocal, SourceRemote)
	}
	if c.KGTimeout <= 0 {
		return fmt.Errorf("kg_timeout must be positive, got %s", c.KGTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
