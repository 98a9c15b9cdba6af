package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENV", "LOG_LEVEL", "LOG_FILE", "DATA_PATH", "SERVER_PORT",
	"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
	"CORS_ALLOWED_ORIGINS", "ACCESS_TOKEN_DURATION", "REFRESH_TOKEN_DURATION",
	"OPEN_REGISTRATION", "LOGIN_RATE_PER_MINUTE", "CLOSURE_ENABLED",
}

// clearEnv unsets every config key for the test. t.Setenv registers the
// restore; the unset lets a .env file fill the key.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{DataPath: "/some/path"},
		Auth: AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: time.Hour,
			LoginRatePerMinute:   10,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"INFO", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data path cannot be empty")
}

func TestValidate_LoginRate(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.LoginRatePerMinute = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandDataPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty uses default", "", filepath.Join(homeDir, "Diary", "data")},
		{"tilde", "~/my-data", filepath.Join(homeDir, "my-data")},
		{"absolute", "/absolute/path/to/data", "/absolute/path/to/data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Storage: StorageConfig{DataPath: tt.input}}
			require.NoError(t, cfg.expandDataPath())
			assert.Equal(t, tt.want, cfg.Storage.DataPath)
		})
	}

	t.Run("relative", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{DataPath: "relative/path"}}
		require.NoError(t, cfg.expandDataPath())
		assert.True(t, filepath.IsAbs(cfg.Storage.DataPath))
		assert.Contains(t, cfg.Storage.DataPath, "relative/path")
	})
}

func TestStoragePaths(t *testing.T) {
	s := StorageConfig{DataPath: "/data"}
	assert.Equal(t, "/data/diary.db", s.DatabasePath())
	assert.Equal(t, "/data/sessions", s.SessionStatePath())
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env"), "-data-path", dir})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.Logger.FilePath)
	assert.Equal(t, dir, cfg.Storage.DataPath)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 720*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.True(t, cfg.Auth.OpenRegistration)
	assert.Equal(t, 10, cfg.Auth.LoginRatePerMinute)
	assert.True(t, cfg.Search.ClosureEnabled)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
SERVER_PORT=9000
CLOSURE_ENABLED=false
CORS_ALLOWED_ORIGINS="http://localhost:3000,http://diary.local"
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// The real environment wins over the file, flags win over both.
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := Load([]string{"-env-file", envFile, "-data-path", dir, "-port", "9200"})
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "9200", cfg.Server.Port)
	assert.False(t, cfg.Search.ClosureEnabled)
	assert.Equal(t, []string{"http://localhost:3000", "http://diary.local"}, cfg.Server.CORSOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("ACCESS_TOKEN_DURATION", "soon")

	_, err := Load([]string{"-env-file", filepath.Join(dir, "none"), "-data-path", dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token duration")
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load([]string{"-env-file", filepath.Join(dir, "none"), "-data-path", dir, "-env", "qa"})
	assert.Error(t, err)
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := Load([]string{"-no-such-flag"})
	assert.Error(t, err)
}
