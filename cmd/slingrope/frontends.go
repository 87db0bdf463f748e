// cmd/slingrope/frontends.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/engine"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/input"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/render"
	engorender "github.com/opd-ai/go-slingrope/pkg/render/engo"
)

const frameRate = 60

// runEngo opens a window and blocks until it closes
func runEngo(cfg *config.Config, receiver entity.ImpulseReceiver, bus *event.Bus, logger *logging.Logger) error {
	pointer := input.NewPointer()
	sim, err := engine.NewSimulation(cfg, pointer, receiver, bus, engine.WithLogger(logger.Component("simulation")))
	if err != nil {
		return err
	}
	engorender.Run(cfg, sim, pointer, logger.Component("engo_scene"))
	return nil
}

// runTerminal draws on the controlling terminal until the user quits or ctx
// is cancelled
func runTerminal(ctx context.Context, cfg *config.Config, receiver entity.ImpulseReceiver, bus *event.Bus, logger *logging.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	renderer := render.NewTerminalRenderer(screen, cfg.Display.CellsPerUnit)
	renderer.SetCenter(cfg.Skateboard.Position.Scale(0.5))
	source := render.NewTerminalInput(renderer)

	sim, err := engine.NewSimulation(cfg, source, receiver, bus, engine.WithLogger(logger.Component("simulation")))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		source.Run(ctx)
		cancel()
	}()

	sim.Start()
	defer sim.Stop()

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := sim.Update(); err != nil {
				logger.Debug(ctx, "frame skipped", "reason", err.Error())
			}
			renderer.SetStatus(statusLine(sim.State()))
			sim.Render(renderer)
		}
	}
}

func statusLine(s engine.State) string {
	text := fmt.Sprintf(" %s  releases %d  last (%.2f, %.2f)  q quits ",
		s.Gesture, s.Releases, s.ReleaseForce.X, s.ReleaseForce.Y)
	if s.Board != nil {
		text += fmt.Sprintf(" board (%.1f, %.1f) ", s.Board.Position.X, s.Board.Position.Y)
	}
	return text
}
