package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"database_driver":                 "postgres",
		"database_dsn":                    "postgres://db/auth",
		"secret_key":                      "my_secret_key",
		"issuer":                          "iss",
		"audience":                        "aud",
		"access_token_validity_duration":  "5m",
		"refresh_token_validity_duration": float64(48 * time.Hour),
		"metrics_addr":                    ":9100",
		"log_level":                       "warn",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "postgres", cfg.DatabaseDriver)
		assert.Equal(t, "postgres://db/auth", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "iss", cfg.Issuer)
		assert.Equal(t, "aud", cfg.Audience)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, ":9100", cfg.MetricsAddr)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("short flag and partial file keep other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "from-file"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "from-file", cfg.SecretKey)
		assert.Equal(t, "MyAuthServer", cfg.Issuer)
		assert.Equal(t, 10*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DatabaseDriver: "memory", SecretKey: "key", AccessTokenValidityDuration: 2 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, "memory", cfg.DatabaseDriver)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("flags override json", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag, "-s", "from-flag", "-t", "1"}

		cfg := LoadConfig()

		assert.Equal(t, "from-flag", cfg.SecretKey)
		assert.Equal(t, time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, "iss", cfg.Issuer)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
