package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/skillauth/internal/flagx"
	"github.com/dmitrijs2005/skillauth/internal/timex"
)

// JsonConfig is the file form of Config. Intervals use timex.Duration, which
// accepts both strings such as "10m" and integer nanoseconds.
type JsonConfig struct {
	DatabaseDriver               string         `json:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	Issuer                       string         `json:"issuer"`
	Audience                     string         `json:"audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	MetricsAddr                  string         `json:"metrics_addr"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays config with the JSON file named by -c or -config.
// Without the flag nothing is loaded. Keys absent from the file leave the
// current value in place. An unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.Audience, c.Audience)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
