package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/app"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon in the foreground",
	Long: `Runs opsd in the foreground: acquires the workspace instance lock,
starts the job scheduler, and serves the HTTP API until interrupted.

Examples:
  ops serve
  ops serve --port 7878
  ops serve --host 127.0.0.1 --port 7777`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if host, _ := cmd.Flags().GetString("host"); host != "" {
			cfg.Server.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}

		paths, err := cfg.ResolvePaths()
		if err != nil {
			fail(err)
		}

		logger := common.InitLogger(cfg, paths.LogsDir)
		common.InstallCrashHandler(paths.LogsDir)
		common.PrintBanner(common.GetVersion())

		application, err := app.New(cfg, logger)
		if err != nil {
			fail(err)
		}
		defer application.Close()

		srv := server.New(application)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					common.WriteCrashFile(r, string(debug.Stack()))
					logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
				}
			}()

			if err := srv.Start(); err != nil {
				logger.Fatal().Err(err).Msg("Server failed to start")
			}
		}()

		// Give goroutine a moment to start
		time.Sleep(100 * time.Millisecond)

		logger.Info().
			Str("url", cfg.BaseURL()).
			Msg("Press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info().Msg("Interrupt signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}

		logger.Info().Msg("Server stopped")
	},
}

func init() {
	serveCmd.Flags().String("host", "", "bind host (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "bind port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
