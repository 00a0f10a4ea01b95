// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package config loads and validates application configuration via
// Koanf v2 with layered sources: struct defaults, then an optional YAML
// file, then environment variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root application configuration.
type Config struct {
	Server Server `koanf:"server"`
	Remote Remote `koanf:"remote"`
	Scope  Scope  `koanf:"scope"`
	Sync   Sync   `koanf:"sync"`
	SLA    SLA    `koanf:"sla"`
	NATS   NATS   `koanf:"nats"`
	Log    Log    `koanf:"log"`
}

// Server configures the HTTP/WebSocket listener.
type Server struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Remote configures the upstream KOT system (snapshot fetches and
// ticket/item commands).
type Remote struct {
	URL     string        `koanf:"url" validate:"omitempty,url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit is the maximum snapshot/command requests per second
	// against the remote system.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
}

// Scope selects which kitchen traffic this instance displays. Empty
// fields widen the scope: with no kitchen and no station the instance
// follows all kitchens.
type Scope struct {
	Branch  string `koanf:"branch"`
	Kitchen string `koanf:"kitchen"`
	Station string `koanf:"station"`
}

// Sync configures snapshot polling.
type Sync struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"gte=1s"`
}

// SLA configures breach thresholds shared across all tickets.
type SLA struct {
	Warning       time.Duration `koanf:"warning" validate:"gt=0"`
	Critical      time.Duration `koanf:"critical" validate:"gt=0"`
	CheckInterval time.Duration `koanf:"check_interval" validate:"gte=1s"`
}

// NATS configures the push-event transport.
type NATS struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// Embedded runs an in-process NATS server for standalone
	// deployments; URL is ignored when set.
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
}

// Log configures the global logger.
type Log struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8480,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Remote: Remote{
			URL:       "",
			APIKey:    "",
			Timeout:   10 * time.Second,
			RateLimit: 5,
		},
		Scope: Scope{},
		Sync: Sync{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
		SLA: SLA{
			Warning:       5 * time.Minute,
			Critical:      10 * time.Minute,
			CheckInterval: 10 * time.Second,
		},
		NATS: NATS{
			Enabled:  true,
			URL:      "nats://127.0.0.1:4222",
			Embedded: false,
			StoreDir: "/data/expo/nats",
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks field constraints and cross-field invariants.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.SLA.Critical <= c.SLA.Warning {
		return fmt.Errorf("sla.critical (%s) must exceed sla.warning (%s)", c.SLA.Critical, c.SLA.Warning)
	}
	if c.Scope.Station != "" && c.Scope.Kitchen == "" {
		// A station filter without its kitchen is almost always a
		// misconfiguration; station IDs are only unique per kitchen.
		return fmt.Errorf("scope.station requires scope.kitchen to be set")
	}
	if c.Sync.Enabled && c.Remote.URL == "" {
		return fmt.Errorf("sync.enabled requires remote.url")
	}
	return nil
}
