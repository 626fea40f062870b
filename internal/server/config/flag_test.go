package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		start       *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-d", "postgres", "-u", "postgres://localhost/auth", "-s", "secret",
			"-i", "iss", "-n", "aud", "-t", "15", "-r", "7", "-m", ":9090", "-l", "debug",
		},
			start: &Config{},
			expected: &Config{
				DatabaseDriver:               "postgres",
				DatabaseDSN:                  "postgres://localhost/auth",
				SecretKey:                    "secret",
				Issuer:                       "iss",
				Audience:                     "aud",
				AccessTokenValidityDuration:  15 * time.Minute,
				RefreshTokenValidityDuration: 7 * 24 * time.Hour,
				MetricsAddr:                  ":9090",
				LogLevel:                     "debug",
			}},
		{name: "unknown flags ignored, durations kept", args: []string{"cmd", "-c", "cfg.json", "-x", "1", "-s", "other"},
			start: &Config{
				SecretKey:                    "k",
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: 36 * time.Hour,
			},
			expected: &Config{
				SecretKey:                    "other",
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: 36 * time.Hour,
			}},
		{name: "bad int panics", args: []string{"cmd", "-t", "ten"}, start: &Config{}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := tt.start

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
