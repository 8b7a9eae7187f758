package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CONSOLE_"

var envLookuper = envconfig.OsLookuper()

// parseEnv overlays cfg with CONSOLE_* variables found by l. Variables that
// are not set leave the current value alone. Panics on malformed values, like
// the other loaders.
func parseEnv(cfg *Config, l envconfig.Lookuper) {
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	})
	if err != nil {
		panic(err)
	}
}
