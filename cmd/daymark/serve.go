// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/daymark-app/daymark/internal/config"
	"github.com/daymark-app/daymark/internal/daemon"
	"github.com/daymark-app/daymark/internal/log"
	"github.com/daymark-app/daymark/internal/version"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service and the refresh job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	return cmd
}

func serve(parent context.Context, configPath string) error {
	// Safe defaults until config is loaded.
	log.Configure(log.Config{Level: "info", Service: "daymark", Version: version.Version})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
		return err
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "daymark", Version: cfg.Version})
	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", configPath).
		Msg("loaded configuration")

	rt, err := daemon.Build(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "startup.failed").Msg("failed to wire components")
		return err
	}

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:         logger,
		APIHandler:     rt.API.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.Server.MetricsAddr,
	})
	if err != nil {
		_ = rt.Close(context.WithoutCancel(ctx))
		return err
	}
	rt.RegisterHooks(mgr)

	holder := config.NewConfigHolder(cfg, loader)
	app := daemon.NewApp(logger, mgr, holder, rt)
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon exited with error")
		return err
	}
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("server exited gracefully")
	return nil
}
