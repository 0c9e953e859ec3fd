package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ADDR", "SOURCE", "DB", "KG_URL", "KG_TIMEOUT", "INSTANCE_PREFIX", "INFERENCE_USER",
		"AUTH_TOKEN", "REDIS_ADDR", "REDIS_DB", "CACHE_TTL", "LOG_LEVEL",
	} {
		t.Setenv("KGEDITOR_"+k, "")
		require.NoError(t, os.Unsetenv("KGEDITOR_"+k))
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, config.SourceLocal, cfg.Source)
	assert.Equal(t, "kgeditor.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.KGTimeout)
	assert.Equal(t, "https://kg.ebrains.eu/api/instances/", cfg.InstancePrefix)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.AuthToken)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("KGEDITOR_ADDR", ":9090")
	t.Setenv("KGEDITOR_SOURCE", "remote")
	t.Setenv("KGEDITOR_KG_URL", "https://core.kg.ebrains.eu/v3")
	t.Setenv("KGEDITOR_KG_TIMEOUT", "5s")
	t.Setenv("KGEDITOR_INSTANCE_PREFIX", "https://kg.example.org/instances")
	t.Setenv("KGEDITOR_AUTH_TOKEN", "secret-token")
	t.Setenv("KGEDITOR_REDIS_DB", "3")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, config.SourceRemote, cfg.Source)
	assert.Equal(t, "https://core.kg.ebrains.eu/v3", cfg.KGURL)
	assert.Equal(t, 5*time.Second, cfg.KGTimeout)
	assert.Equal(t, "https://kg.example.org/instances/", cfg.InstancePrefix)
	assert.Equal(t, "secret-token", cfg.AuthToken)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7070\"\ncache_ttl: 1m\nlog_level: debug\n"), 0o600))
	t.Setenv("KGEDITOR_ADDR", ":6060")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.Addr, "env overrides file")
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadWorkingDirectoryFile(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile("kgeditor.yaml", []byte("db: other.db\n"), 0o600))

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "other.db", cfg.DBPath)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadFlagsOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("KGEDITOR_ADDR", ":6060")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", ":8080", "")
	require.NoError(t, fs.Parse([]string{"--addr", ":5050"}))

	cfg, err := config.Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, ":5050", cfg.Addr)
}

func TestLoadDashedFlags(t *testing.T) {
	clearEnv(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.String("kg-url", "", "")
	require.NoError(t, fs.Parse([]string{"--log-level", "debug"}))

	cfg, err := config.Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.KGURL)
}

func TestValidate(t *testing.T) {
	valid := config.Config{Source: config.SourceLocal, DBPath: "x.db", KGTimeout: time.Second, LogLevel: "info"}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*config.Config){
		"unknown source":     func(c *config.Config) { c.Source = "ftp" },
		"remote without url": func(c *config.Config) { c.Source = config.SourceRemote },
		"zero timeout":       func(c *config.Config) { c.KGTimeout = 0 },
		"bad log level":      func(c *config.Config) { c.LogLevel = "loud" },
		"local without db":   func(c *config.Config) { c.DBPath = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
