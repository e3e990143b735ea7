package client

import (
	"github.com/spf13/cobra"
)

// Register adds the client commands to root.
func Register(root *cobra.Command) {
	root.AddCommand(NewSubmitCommand(), NewTotalCommand(), NewWatchCommand(), NewTokenCommand())
}
