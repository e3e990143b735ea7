package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Namespace scopes every key the service writes.
	Namespace string `json:"namespace" yaml:"namespace" env:"NAMESPACE"`
	// Slot names the single total kept in the namespace.
	Slot string `json:"slot" yaml:"slot" env:"SLOT"`
	// MaxValue is the inclusive per-submission ceiling.
	MaxValue  uint32          `json:"maxValue" yaml:"maxValue" env:"MAX_VALUE"`
	Auth      AuthConfig      `json:"auth" yaml:"auth" envPrefix:"AUTH_"`
	RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit" envPrefix:"RATE_LIMIT_"`
	Watch     WatchConfig     `json:"watch" yaml:"watch" envPrefix:"WATCH_"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Secret   string `json:"secret" yaml:"secret" env:"SECRET"`
	Issuer   string `json:"issuer" yaml:"issuer" env:"ISSUER"`
	Disabled bool   `json:"disabled" yaml:"disabled" env:"DISABLED"`
	// TokenTTLMinutes bounds tokens minted by `tally token`.
	TokenTTLMinutes int `json:"tokenTTLMinutes" yaml:"tokenTTLMinutes" env:"TOKEN_TTL_MINUTES"`
}

// RateLimitConfig bounds submissions per identity. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `json:"rps" yaml:"rps" env:"RPS"`
	Burst int     `json:"burst" yaml:"burst" env:"BURST"`
}

// WatchConfig tunes notification streaming.
type WatchConfig struct {
	PollMs   int `json:"pollMs" yaml:"pollMs" env:"POLL_MS"`
	BatchMax int `json:"batchMax" yaml:"batchMax" env:"BATCH_MAX"`
}

var nameRe = regexp.MustCompile(`^[a-z0-9-_]{1,64}$`)

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Namespace: "default",
		Slot:      "total",
		MaxValue:  50,
		Auth: AuthConfig{
			Issuer:          "tally",
			TokenTTLMinutes: 60,
		},
		RateLimit: RateLimitConfig{Burst: 10},
		Watch:     WatchConfig{PollMs: 250, BatchMax: 128},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// Default. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks the fields the runtime depends on.
func (c Config) Validate() error {
	var errs []error
	if !nameRe.MatchString(c.Namespace) {
		errs = append(errs, fmt.Errorf("namespace %q must match %s", c.Namespace, nameRe))
	}
	if !nameRe.MatchString(c.Slot) {
		errs = append(errs, fmt.Errorf("slot %q must match %s", c.Slot, nameRe))
	}
	if !c.Auth.Disabled && len(c.Auth.Secret) < 16 {
		errs = append(errs, errors.New("auth.secret must be at least 16 bytes unless auth.disabled is set"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rateLimit.burst must be positive when rateLimit.rps is set"))
	}
	if c.Watch.PollMs <= 0 {
		errs = append(errs, errors.New("watch.pollMs must be positive"))
	}
	return errors.Join(errs...)
}
