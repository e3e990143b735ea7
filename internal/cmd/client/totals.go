package client

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rzbill/tally/internal/cmd/client/transports"
	"github.com/spf13/cobra"
)

// NewSubmitCommand returns `tally submit <value>`.
func NewSubmitCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "submit <value>",
		Short: "Add a value to the running total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("value must be an unsigned 32-bit integer: %w", err)
			}
			ev, err := newTransport(tokenOrEnv(token)).Submit(cmd.Context(), uint32(v))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ev)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (default $TALLY_TOKEN)")
	return cmd
}

// NewTotalCommand returns `tally total`.
func NewTotalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print the running total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newTransport("").Total(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

// NewWatchCommand returns `tally watch`.
func NewWatchCommand() *cobra.Command {
	var req transports.WatchRequest
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream committed submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()
			return newTransport("").Watch(ctx, req, func(ev transports.Event) error {
				return printJSON(out, ev)
			})
		},
	}
	cmd.Flags().StringVar(&req.From, "from", "latest", "Start position: latest|earliest|<seq>")
	cmd.Flags().StringVar(&req.Filter, "filter", "", "CEL filter over total, value, submitter, seq, ts_ms and now_ms")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "Stop after this many events (0 = unlimited)")
	return cmd
}
