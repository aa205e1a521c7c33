package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config describes all runtime settings for the server.
//
// Best practice for Go services:
//   - load config once in main
//   - validate
//   - pass further via DI (no global variables)
type Config struct {
	Env string // dev|stage|prod

	Log struct {
		Format string // text|json
	}

	HTTP struct {
		Addr              string
		ReadHeaderTimeout time.Duration
		ReadTimeout       time.Duration
		WriteTimeout      time.Duration
		IdleTimeout       time.Duration
		ShutdownTimeout   time.Duration

		// BaseURL is the externally reachable root used for TV links
		// and QR payloads, without a trailing slash.
		BaseURL string
	}

	Match struct {
		// Retention is how long a match (or an unlinked TV session)
		// lives before the janitor removes it.
		Retention       time.Duration
		JanitorInterval time.Duration
	}
}

func LoadFromEnv() (Config, error) {
	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Log.Format = envString("LOG_FORMAT", "text")

	port := envString("PORT", "8080")
	c.HTTP.Addr = envString("HTTP_ADDR", ":"+port)
	c.HTTP.ReadHeaderTimeout = envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	c.HTTP.ReadTimeout = envDuration("HTTP_READ_TIMEOUT", 0)
	c.HTTP.WriteTimeout = envDuration("HTTP_WRITE_TIMEOUT", 0)
	c.HTTP.IdleTimeout = envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	c.HTTP.ShutdownTimeout = envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	c.HTTP.BaseURL = strings.TrimRight(envString("BASE_URL", "http://localhost:"+port), "/")

	c.Match.Retention = envDuration("MATCH_RETENTION", 24*time.Hour)
	c.Match.JanitorInterval = envDuration("JANITOR_INTERVAL", time.Hour)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("HTTP addr is empty")
	}
	if c.HTTP.BaseURL == "" {
		return errors.New("BASE_URL is empty")
	}
	if c.Match.Retention <= 0 {
		return errors.New("MATCH_RETENTION must be positive")
	}
	if c.Match.JanitorInterval <= 0 {
		return errors.New("JANITOR_INTERVAL must be positive")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
