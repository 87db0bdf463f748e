// cmd/boardd/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/health"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/network"
)

func main() {
	logger := logging.NewLogger().Component("boardd")
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", *configPath)
		return
	}

	var cfg *config.Config
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration", "config_path", *configPath)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", err)
		os.Exit(1)
	}

	sc := cfg.Skateboard
	board := entity.NewSkateboard(1, sc.Position, sc.Mass, sc.Inertia)
	board.SetDamping(sc.LinearDamping, sc.AngularDamping)

	bus := event.NewEventBus()
	bus.Subscribe(event.ImpulseReceived, func(e event.Event) {
		if ie, ok := e.(*event.ImpulseEvent); ok {
			pose := board.Pose()
			logger.Info(ctx, "impulse received",
				"seq", ie.Seq,
				"x", ie.Impulse.X,
				"y", ie.Impulse.Y,
				"board_x", pose.Position.X,
				"board_y", pose.Position.Y,
				"angle", pose.Angle,
			)
		}
	})

	server := network.NewImpulseServer(board, cfg.Network, bus, logger.Component("impulse_server"))

	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewRunningHealthCheck("impulse_server", server.IsRunning))
	healthChecker.AddCheck(health.NewNetworkHealthCheck(server.GetListenerAddress))
	healthChecker.AddCheck(health.NewMemoryHealthCheck(500, health.CurrentMemoryMB))

	if cfg.Network.ServerAddress == "" {
		logger.Error(ctx, "Server address not configured", nil,
			"message", "Set SLINGROPE_BOARD_ADDR and SLINGROPE_BOARD_PORT or provide network.serverAddress in the config file",
		)
		os.Exit(1)
	}

	logger.Info(ctx, "Starting board daemon",
		"address", cfg.Network.ServerAddress,
		"max_clients", cfg.Network.MaxClients,
	)
	if err := server.Start(cfg.Network.ServerAddress); err != nil {
		logger.Error(ctx, "Failed to start server", err, "address", cfg.Network.ServerAddress)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthAddr := fmt.Sprintf(":%d", cfg.Network.HealthPort)
	healthDone := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting health check server", "address", healthAddr)
		healthDone <- healthChecker.Serve(ctx, healthAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down board daemon")
		if err := <-healthDone; err != nil {
			logger.Error(context.Background(), "Health check server shutdown failed", err)
		}
	case err := <-healthDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(ctx, "Health check server failed", err)
		}
	}

	server.Stop()
}
