package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the flags
// listed in doc.go are considered; os.Args is filtered with flagx.FilterArgs
// so other loaders can share it. Durations are whole minutes, hours or
// seconds as documented.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-d", "-a", "-s", "-t", "-r", "-w", "-i", "-R", "-m", "-k", "-l", "-f",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DeviceDBPath, "d", cfg.DeviceDBPath, "device database path")
	fs.StringVar(&cfg.DirectoryDSN, "a", cfg.DirectoryDSN, "agent directory DSN")
	fs.StringVar(&cfg.SessionSecret, "s", cfg.SessionSecret, "session signing secret")
	sessionTTL := fs.Int("t", int(cfg.SessionTTL.Minutes()), "session lifetime (in minutes)")
	refreshTTL := fs.Int("r", int(cfg.RefreshTokenTTL.Hours()), "remembered login lifetime (in hours)")
	directoryTimeout := fs.Int("w", int(cfg.DirectoryTimeout.Seconds()), "directory timeout (in seconds)")
	revalidateInterval := fs.Int("i", int(cfg.RevalidateInterval.Seconds()), "revalidation interval (in seconds)")
	fs.StringVar(&cfg.RedisAddr, "R", cfg.RedisAddr, "redis address for login throttling")
	fs.IntVar(&cfg.MaxLoginAttempts, "m", cfg.MaxLoginAttempts, "failed logins allowed per cooldown window")
	loginCooldown := fs.Int("k", int(cfg.LoginCooldown.Seconds()), "login cooldown (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format: json, text or pretty")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Hour
	cfg.DirectoryTimeout = time.Duration(*directoryTimeout) * time.Second
	cfg.RevalidateInterval = time.Duration(*revalidateInterval) * time.Second
	cfg.LoginCooldown = time.Duration(*loginCooldown) * time.Second
}
