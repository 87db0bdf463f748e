// cmd/slingrope/main.go
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-slingrope/pkg/audio"
	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/network"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	rendererName := flag.String("renderer", "terminal", "Renderer type: 'terminal' or 'engo'")
	boardAddr := flag.String("board-addr", "", "Send impulses to a board daemon at this address instead of the local board")
	clientName := flag.String("name", "slingrope", "Name announced to the board daemon")
	sound := flag.Bool("sound", false, "Play release cues")
	logPath := flag.String("log", "", "Write logs to this file (terminal renderer discards logs by default)")
	flag.Parse()

	logger, closeLog := newLogger(*rendererName, *logPath)
	defer closeLog()
	ctx := context.Background()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", *configPath)
		return
	}

	cfg, err := loadConfig(ctx, *configPath, logger)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}
	if *sound {
		cfg.Display.Sound = true
	}

	bus := event.NewEventBus()
	receiver, closeReceiver := newReceiver(ctx, cfg, *boardAddr, *clientName, bus, logger)
	defer closeReceiver()

	if cfg.Display.Sound {
		player := startAudio(ctx, cfg, bus, logger)
		defer player.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *rendererName {
	case "engo":
		err = runEngo(cfg, receiver, bus, logger)
	case "terminal":
		err = runTerminal(ctx, cfg, receiver, bus, logger)
	default:
		logger.Error(ctx, "Unknown renderer", nil, "renderer", *rendererName)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(ctx, "Front-end failed", err, "renderer", *rendererName)
		os.Exit(1)
	}
}

// newLogger keeps JSON lines off the terminal the terminal renderer draws on
func newLogger(rendererName, path string) (*logging.Logger, func()) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			return logging.NewLoggerWithWriter(f), func() { f.Close() }
		}
	}
	if rendererName == "terminal" {
		return logging.NewLoggerWithWriter(io.Discard), func() {}
	}
	return logging.NewLoggerWithWriter(os.Stderr), func() {}
}

// loadConfig reads path when it exists and applies environment overrides
func loadConfig(ctx context.Context, path string, logger *logging.Logger) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration", "config_path", path)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, logging.WrapError(err, "environment overrides")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newReceiver returns the local board, or a client for a remote one when
// boardAddr is set
func newReceiver(ctx context.Context, cfg *config.Config, boardAddr, name string, bus *event.Bus, logger *logging.Logger) (entity.ImpulseReceiver, func()) {
	if boardAddr == "" {
		sc := cfg.Skateboard
		board := entity.NewSkateboard(1, sc.Position, sc.Mass, sc.Inertia)
		board.SetDamping(sc.LinearDamping, sc.AngularDamping)
		return board, func() {}
	}

	nc := cfg.Network
	nc.ServerAddress = boardAddr
	client := network.NewImpulseClient(nc, name, bus, logger.Component("impulse_client"))

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		// sends reconnect on demand, so a daemon started later still works
		logger.Warn(ctx, "board daemon unreachable", "address", boardAddr, "error", err.Error())
	}
	return client, func() { client.Close() }
}

// startAudio opens the speaker and plays cues for releases and failures
func startAudio(ctx context.Context, cfg *config.Config, bus *event.Bus, logger *logging.Logger) *audio.Player {
	// a drag across the whole rope hits the top of the pitch range
	reference := float64(cfg.Rope.SegmentCount) * cfg.Rope.SegmentLength * cfg.Steering.ReleaseScale
	player := audio.NewPlayer(reference, logger.Component("audio"))
	if err := player.Initialize(); err != nil {
		logger.Warn(ctx, "audio unavailable", "error", err.Error())
	}
	player.Subscribe(bus)
	return player
}
