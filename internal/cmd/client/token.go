package client

import (
	"fmt"
	"time"

	"github.com/rzbill/tally/internal/auth"
	cfgpkg "github.com/rzbill/tally/internal/config"
	"github.com/spf13/cobra"
)

// NewTokenCommand returns `tally token`, which signs a bearer token with the
// secret from --config and TALLY_AUTH_SECRET.
func NewTokenCommand() *cobra.Command {
	var (
		configPath string
		subject    string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a submitter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfgpkg.FromEnv(&cfg); err != nil {
				return err
			}
			if cfg.Auth.Disabled {
				return fmt.Errorf("auth is disabled; tokens are not needed")
			}
			if len(cfg.Auth.Secret) < 16 {
				return fmt.Errorf("auth secret must be at least 16 bytes; set auth.secret or %sAUTH_SECRET", cfgpkg.EnvPrefix)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
			}
			tok, err := auth.NewJWTVerifier(cfg.Auth.Secret, cfg.Auth.Issuer).Issue(subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (JSON or YAML)")
	cmd.Flags().StringVar(&subject, "subject", "", "Submitter identity")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.tokenTTLMinutes)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
