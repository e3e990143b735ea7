package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rzbill/tally/internal/cmd/client"
	serverrun "github.com/rzbill/tally/internal/cmd/server"
	cfgpkg "github.com/rzbill/tally/internal/config"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
	logpkg "github.com/rzbill/tally/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// CLI logger; respects TALLY_LOG_LEVEL
	parsed, err := logpkg.ParseLevel(os.Getenv(cfgpkg.EnvPrefix + "LOG_LEVEL"))
	if err != nil {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	rootCmd := &cobra.Command{
		Use:          "tally",
		Short:        "Tally running-total server and CLI",
		Long:         "Tally keeps a single authenticated, overflow-safe running total and streams every change.",
		SilenceUsage: true,
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start tally server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			grpcAddr, _ := cmd.Flags().GetString("grpc")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			configPath, _ := cmd.Flags().GetString("config")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode, err := pebblestore.ParseFsyncMode(fsyncMode)
			if err != nil {
				return err
			}
			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfgpkg.FromEnv(&cfg); err != nil {
				return fmt.Errorf("config env: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				GRPCAddr:      grpcAddr,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
				LogLevel:      logLevel,
				LogFormat:     logFormat,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("grpc", ":50051", "gRPC listen address")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	serverStartCmd.Flags().String("config", os.Getenv(cfgpkg.EnvPrefix+"CONFIG"), "Config file (JSON or YAML)")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	clientcmd.Register(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}
