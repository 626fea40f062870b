package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/flagx"
)

const day = 24 * time.Hour

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   database driver: postgres, sqlite or memory
//	-u string   database DSN
//	-s string   JWT HMAC secret key
//	-i string   token issuer
//	-n string   token audience
//	-t int      access token validity, minutes
//	-r int      refresh token validity, days
//	-m string   metrics listen address (e.g. ":9090")
//	-l string   log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-u", "-s", "-i", "-n", "-t", "-r", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDriver, "d", config.DatabaseDriver, "database driver (postgres|sqlite|memory)")
	fs.StringVar(&config.DatabaseDSN, "u", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.StringVar(&config.Audience, "n", config.Audience, "token audience")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration/day), "refresh_token_validity_duration (in days)")

	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics listen address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// keep sub-unit values from JSON unless the flag was given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * day
		}
	})
}
