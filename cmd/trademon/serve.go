package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trademon/trademon/internal/config"
	"github.com/trademon/trademon/internal/engine"
	"github.com/trademon/trademon/internal/gateway"
	"github.com/trademon/trademon/internal/history"
	historyfactory "github.com/trademon/trademon/internal/history/factory"
	"github.com/trademon/trademon/internal/logger"
	"github.com/trademon/trademon/internal/metrics"
	"github.com/trademon/trademon/internal/mirror"
	"github.com/trademon/trademon/internal/server"
)

// createServeCommand creates the serve subcommand.
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Run the trademon server",
		Long: `Run the trademon server: supervise the embedded engine and expose
the lifecycle API.

Examples:
  trademon serve --config=config.toml
  trademon serve config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			if configPath == "" {
				return fmt.Errorf("config file required. Use --config=config.toml or provide as argument")
			}
			return runServe(configPath)
		},
	}
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log)

	sup := engine.New(engine.Config{
		DataDir:      cfg.Engine.DataDir,
		BinDir:       cfg.Engine.BinDir,
		Port:         cfg.Engine.Port,
		User:         cfg.Engine.User,
		Password:     cfg.Engine.Password,
		Database:     cfg.Engine.Database,
		StartTimeout: cfg.Engine.StartTimeout,
		StopWait:     cfg.Engine.StopWait,
		ProbeWait:    cfg.Engine.ProbeWait,
		KillGrace:    cfg.Engine.KillGrace,
		EngineStdout: cfg.Log.EngineWriter("engine"),
		EngineStderr: cfg.Log.EngineWriter("engine_err"),
		Logger:       log,
	})

	sinks := make([]history.Sink, 0, len(cfg.History.Sinks))
	for _, dsn := range cfg.History.Sinks {
		sink, err := historyfactory.NewSinkFromDSN(dsn)
		if err != nil {
			return fmt.Errorf("history sink %s: %w", dsn, err)
		}
		sinks = append(sinks, sink)
	}
	sup.SetHistorySinks(sinks...)

	var trades server.TradeSource
	if cfg.Mirror.StorePath != "" {
		reader, err := mirror.Open(cfg.Mirror.StorePath)
		if err != nil {
			// The trading engine may not have created its store yet.
			log.Warn("trade mirror unavailable", "path", cfg.Mirror.StorePath, "error", err)
		} else {
			defer func() { _ = reader.Close() }()
			trades = reader
		}
	}

	var gw server.HealthChecker
	if cfg.Gateway.BaseURL != "" {
		gw = gateway.New(gateway.Config{
			BaseURL: cfg.Gateway.BaseURL,
			Timeout: cfg.Gateway.Timeout,
			Logger:  log,
		})
	}

	if cfg.Metrics.Enabled {
		if err := metrics.RegisterDefault(); err != nil {
			log.Warn("metrics registration failed", "error", err)
		}
	}

	router := server.NewRouter(sup, trades, gw, "", cfg.Metrics.Enabled)
	srv := server.NewServer(cfg.Server.Listen, router)
	log.Info("trademon server listening", "addr", cfg.Server.Listen)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	url, err := sup.Start(startCtx, 0)
	cancel()
	if err != nil {
		log.Error("engine start failed", "error", err)
	} else {
		log.Info("engine ready", "url", url)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sup.Stop(stopCtx)
	return srv.Close()
}
