package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/policonsole/internal/flagx"
	"github.com/dmitrijs2005/policonsole/internal/timex"
)

// JsonConfig is a DTO used only for JSON unmarshalling; intervals are
// timex.Duration so they may be written as "30s" or as nanoseconds.
// Pointer fields distinguish "absent" from a zero value.
type JsonConfig struct {
	DeviceDBPath       *string         `json:"device_db_path"`
	DirectoryDSN       *string         `json:"directory_dsn"`
	SessionSecret      *string         `json:"session_secret"`
	SessionTTL         *timex.Duration `json:"session_ttl"`
	RefreshTokenTTL    *timex.Duration `json:"refresh_token_ttl"`
	DirectoryTimeout   *timex.Duration `json:"directory_timeout"`
	RevalidateInterval *timex.Duration `json:"revalidate_interval"`
	RedisAddr          *string         `json:"redis_addr"`
	MaxLoginAttempts   *int            `json:"max_login_attempts"`
	LoginCooldown      *timex.Duration `json:"login_cooldown"`
	LogLevel           *string         `json:"log_level"`
	LogFormat          *string         `json:"log_format"`
}

// parseJson overlays cfg with the JSON file named by -c or -config. Without
// either flag nothing is loaded. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DeviceDBPath, jc.DeviceDBPath)
	setString(&cfg.DirectoryDSN, jc.DirectoryDSN)
	setString(&cfg.SessionSecret, jc.SessionSecret)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.SessionTTL != nil {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.RefreshTokenTTL != nil {
		cfg.RefreshTokenTTL = jc.RefreshTokenTTL.Duration
	}
	if jc.DirectoryTimeout != nil {
		cfg.DirectoryTimeout = jc.DirectoryTimeout.Duration
	}
	if jc.RevalidateInterval != nil {
		cfg.RevalidateInterval = jc.RevalidateInterval.Duration
	}
	if jc.LoginCooldown != nil {
		cfg.LoginCooldown = jc.LoginCooldown.Duration
	}
	if jc.MaxLoginAttempts != nil {
		cfg.MaxLoginAttempts = *jc.MaxLoginAttempts
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
