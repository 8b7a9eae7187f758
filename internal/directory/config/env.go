package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DIRECTORY_"

var envLookuper = envconfig.OsLookuper()

// parseEnv overlays config with DIRECTORY_* variables. Panics on malformed
// values.
func parseEnv(config *Config, l envconfig.Lookuper) {
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   config,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	})
	if err != nil {
		panic(err)
	}
}
