package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/internal/cli"
	"github.com/convoflow/convoflow/internal/config"
	"github.com/convoflow/convoflow/internal/logging"
	httpAdapter "github.com/convoflow/convoflow/pkg/adapters/http"
	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/observability"
	"github.com/convoflow/convoflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stateless HTTP server",
	Long:  `Starts the flow engine in server mode, exposing flow registration, graph inspection and session advancement as a JSON API.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		// Flags override the config file when set explicitly.
		port := cfg.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetString("port")
		}
		redisURL := cfg.Redis.Addr
		if cmd.Flags().Changed("redis") {
			redisURL, _ = cmd.Flags().GetString("redis")
		}
		metricsOn := cfg.Metrics || flagBool(cmd, "metrics")

		level := cfg.Level()
		if flagBool(cmd, "debug") {
			level = slog.LevelDebug
		}
		logger := logging.NewJSON(level)

		var hooks domain.LifecycleHooks
		if metricsOn {
			metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
			hooks = metrics.Hooks()
		}

		builder := func(prompt string) (ports.ConversationEngine, error) {
			return convoflow.CreateSectionBasedFlow(prompt,
				convoflow.WithLogger(logger),
				convoflow.WithLifecycleHooks(hooks),
			)
		}

		sessions, err := cli.SetupSessions(cli.RunOptions{RedisURL: redisURL}, logger)
		if err != nil {
			fmt.Printf("Error initializing session storage: %v\n", err)
			os.Exit(1)
		}

		serverOpts := []httpAdapter.ServerOption{httpAdapter.WithLogger(logger)}
		if metricsOn {
			serverOpts = append(serverOpts, httpAdapter.WithMetricsEndpoint())
		}
		server := httpAdapter.NewServer(builder, sessions, serverOpts...)

		// Preload a flow when the prompt flag or config library points
		// somewhere real.
		path := promptPath(cmd, args)
		if cfg.Library != "" && !cmd.Flags().Changed("prompt") && len(args) == 0 {
			path = cfg.Library
		}
		if path != "" {
			opts := cli.RunOptions{Path: path}
			opts.PromptID, _ = cmd.Flags().GetString("id")
			if flow, err := cli.BuildFlow(opts, logger); err == nil {
				server.RegisterFlow("default", flow)
				logger.Info("Preloaded flow", "flow_id", "default", "path", path)
			} else if cmd.Flags().Changed("prompt") {
				fmt.Printf("Error preloading flow: %v\n", err)
				os.Exit(1)
			}
		}

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: server.Handler(),
		}

		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting convoflow server", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("Shutdown started", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			logger.Info("Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("config", "", "Server configuration file (YAML or JSON)")
	serveCmd.Flags().String("redis", "", "Redis address for distributed session storage (host:port)")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
}
