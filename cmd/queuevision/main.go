package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/kyled7/queue-vision/internal/cmd/client"
	serverrun "github.com/kyled7/queue-vision/internal/cmd/server"
	cfgpkg "github.com/kyled7/queue-vision/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "queuevision",
		Short: "Queue-vision CLI",
		Long:  "Queue-vision is a read-only observability dashboard for background-job brokers. This CLI manages the server and basic inspection operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the queue-vision server (HTTP API + event streams)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)
			if v, _ := cmd.Flags().GetString("endpoint"); v != "" {
				cfg.Endpoint = v
			}
			if v, _ := cmd.Flags().GetString("prefix"); v != "" {
				cfg.Prefix = v
			}
			if v, _ := cmd.Flags().GetString("http"); v != "" {
				cfg.HTTPAddr = v
			}
			if v, _ := cmd.Flags().GetInt("sample-horizon"); v > 0 {
				cfg.SampleHorizon = v
			}
			if v, _ := cmd.Flags().GetInt("connect-timeout-ms"); v > 0 {
				cfg.ConnectTimeoutMs = v
			}
			if v, _ := cmd.Flags().GetString("log-level"); v != "" {
				cfg.LogLevel = v
			}
			if v, _ := cmd.Flags().GetString("log-format"); v != "" {
				cfg.LogFormat = v
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, cfg); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Config file path (JSON or YAML)")
	serverStartCmd.Flags().String("endpoint", os.Getenv("QV_ENDPOINT"), "Broker URL (redis://host:port[/db])")
	serverStartCmd.Flags().String("prefix", "", "Broker key prefix (default bull)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverStartCmd.Flags().Int("sample-horizon", 0, "Metrics sampling horizon (default 100)")
	serverStartCmd.Flags().Int("connect-timeout-ms", 0, "Connect timeout in ms (default 10000)")
	serverStartCmd.Flags().String("log-level", os.Getenv("QV_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("QV_LOG_FORMAT"), "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client commands against a running server
	rootCmd.AddCommand(clientcmd.NewQueueCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewJobCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewWatchCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("QV_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
