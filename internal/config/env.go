package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "TALLY_"

// FromEnv overlays TALLY_* environment variables onto cfg. Unset variables
// leave the existing values in place.
//
//	TALLY_NAMESPACE, TALLY_SLOT, TALLY_MAX_VALUE
//	TALLY_AUTH_SECRET, TALLY_AUTH_ISSUER, TALLY_AUTH_DISABLED, TALLY_AUTH_TOKEN_TTL_MINUTES
//	TALLY_RATE_LIMIT_RPS, TALLY_RATE_LIMIT_BURST
//	TALLY_WATCH_POLL_MS, TALLY_WATCH_BATCH_MAX
func FromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
