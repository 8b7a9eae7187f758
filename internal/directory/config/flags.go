package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/flagx"
)

// parseFlags populates directory Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-r int      refresh token validity, hours
//	-l string   log level
//	-f string   log format
//	-seed bool  seed the test agent (use -seed=false to skip)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-l", "-f", "-seed"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()), "refresh_token_validity_duration (in hours)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.BoolVar(&config.SeedTestAgent, "seed", config.SeedTestAgent, "seed the test agent")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Hour
}
