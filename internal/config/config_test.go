package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/archivist/internal/oracle"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBackend, EnvDoubaoKey, EnvDeepSeekKey, EnvTimeout} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, oracle.BackendDoubao, cfg.Backend)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.NotNil(t, cfg.Credentials)
}

func TestSaveAndLoadConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend = oracle.BackendDeepSeek
	cfg.Timeout = 45 * time.Second
	cfg.Concurrency = 4
	require.NoError(t, cfg.SetCredential(oracle.BackendDeepSeek, "  sk-abc  "))
	require.NoError(t, SaveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 45s")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, oracle.BackendDeepSeek, loaded.Backend)
	assert.Equal(t, 45*time.Second, loaded.Timeout)
	assert.Equal(t, 4, loaded.Concurrency)
	assert.Equal(t, "sk-abc", loaded.Credential(oracle.BackendDeepSeek))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: doubao\ncredentials:\n  doubao: file-key\n"), 0o600))

	t.Setenv(EnvBackend, "DeepSeek")
	t.Setenv(EnvDoubaoKey, "env-doubao")
	t.Setenv(EnvDeepSeekKey, "env-deepseek")
	t.Setenv(EnvTimeout, "12")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, oracle.BackendDeepSeek, cfg.Backend)
	assert.Equal(t, "env-doubao", cfg.Credential(oracle.BackendDoubao))
	assert.Equal(t, "env-deepseek", cfg.Credential(oracle.BackendDeepSeek))
	assert.Equal(t, 12*time.Second, cfg.Timeout)

	t.Setenv(EnvTimeout, "1m30s")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Timeout)

	t.Setenv(EnvTimeout, "soon")
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadFile_IgnoresEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("credentials:\n  doubao: file-key\n"), 0o600))
	t.Setenv(EnvDoubaoKey, "env-doubao")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Credential(oracle.BackendDoubao))

	require.NoError(t, cfg.SetCredential(oracle.BackendDeepSeek, " sk-new "))
	require.NoError(t, SaveConfig(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "env-doubao")
	assert.Contains(t, string(data), "sk-new")
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: openai\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte("backend: [\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.Backend = "gpt" }, false},
		{"unknown credential", func(c *Config) { c.Credentials["gpt"] = "k" }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, false},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, false},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, false},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, false},
		{"rps without burst", func(c *Config) { c.RateLimit = RateLimit{RPS: 2, Burst: 0} }, false},
		{"rate limited", func(c *Config) { c.RateLimit = RateLimit{RPS: 2, Burst: 2} }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestSaveConfig_Nil(t *testing.T) {
	assert.Error(t, SaveConfig(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestLoadEnv(t *testing.T) {
	const key = "ARCHIVIST_TEST_DOTENV_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o600))

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.SetCredential(oracle.BackendDoubao, "sk-1234567890abcd"))

	r := cfg.Redacted()
	assert.Equal(t, "sk-1*********abcd", r.Credential(oracle.BackendDoubao))
	assert.Equal(t, "sk-1234567890abcd", cfg.Credential(oracle.BackendDoubao))

	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "*****", Mask("short"))
	assert.Error(t, cfg.SetCredential("gpt", "k"))
}

func TestLoadRules_WritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules, rules)
	assert.FileExists(t, path)

	again, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules, again)
}

func TestSaveRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")

	require.NoError(t, SaveRules(path, "  会议纪要归长期-办公室\n\n"))
	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "会议纪要归长期-办公室", rules)

	assert.ErrorIs(t, SaveRules(path, " \n"), ErrEmptyRules)

	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
	_, err = LoadRules(path)
	assert.ErrorIs(t, err, ErrEmptyRules)

	require.NoError(t, ResetRules(path))
	rules, err = LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules, rules)
}
