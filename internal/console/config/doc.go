// Package config loads runtime configuration for the police records console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables prefixed with CONSOLE_ (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   path of the device database
//	-a string   PostgreSQL DSN of the agent directory
//	-s string   session token signing secret
//	-t int      session token lifetime (minutes)
//	-r int      remembered login lifetime (hours)
//	-w int      directory call timeout (seconds)
//	-i int      session revalidation interval (seconds)
//	-R string   Redis address for login throttling (empty disables it)
//	-m int      failed logins allowed per cooldown window
//	-k int      login cooldown window (seconds)
//	-l string   log level
//	-f string   log format: json, text or pretty
//
// # JSON schema
//
// Intervals use timex.Duration, so values are either strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "device_db_path": "~/.policonsole/device.db",
//	  "directory_dsn": "postgres://...",
//	  "session_secret": "at-least-16-bytes-long",
//	  "session_ttl": "8h",
//	  "refresh_token_ttl": "720h",
//	  "directory_timeout": "5s",
//	  "revalidate_interval": "1m",
//	  "redis_addr": "127.0.0.1:6379",
//	  "max_login_attempts": 5,
//	  "login_cooldown": "5m",
//	  "log_level": "info",
//	  "log_format": "pretty"
//	}
//
// Leave session_secret unset to sign session tokens with a random key that is
// generated on first start and kept in device storage.
//
// # Environment
//
// Every field can be set through CONSOLE_<NAME>, e.g. CONSOLE_SESSION_SECRET
// or CONSOLE_SESSION_TTL=8h.
package config
