package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/policonsole/internal/flagx"
	"github.com/dmitrijs2005/policonsole/internal/timex"
)

// JsonConfig is the on-disk shape of the directory configuration. It uses
// timex.Duration for the token lifetime, so both "720h" and integer
// nanoseconds are accepted.
type JsonConfig struct {
	DatabaseDSN                  string         `json:"database_dsn"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	SeedTestAgent                *bool          `json:"seed_test_agent"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without either flag nothing is loaded. Panics if the file
// cannot be read or contains invalid JSON.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	if c.SeedTestAgent != nil {
		config.SeedTestAgent = *c.SeedTestAgent
	}
	config.LogLevel = c.LogLevel
	config.LogFormat = c.LogFormat
}
