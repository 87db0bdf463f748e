// pkg/render/engo/scene.go
package engo

import (
	"bytes"
	"context"
	"fmt"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/engine"
	"github.com/opd-ai/go-slingrope/pkg/event"
	"github.com/opd-ai/go-slingrope/pkg/input"
	"github.com/opd-ai/go-slingrope/pkg/logging"
)

const hudFontURL = "goregular.ttf"

// SimulationSystem advances the simulation once per engine frame and draws
// the result
type SimulationSystem struct {
	sim      *engine.Simulation
	renderer *EngoRenderer
	hud      *HUDSystem
	logger   *logging.Logger
}

// NewSimulationSystem creates a system driving sim. hud may be nil.
func NewSimulationSystem(sim *engine.Simulation, renderer *EngoRenderer, hud *HUDSystem, logger *logging.Logger) *SimulationSystem {
	return &SimulationSystem{sim: sim, renderer: renderer, hud: hud, logger: logger}
}

// Add satisfies the ecs.System interface
func (ss *SimulationSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
}

// Remove satisfies the ecs.System interface
func (ss *SimulationSystem) Remove(basic ecs.BasicEntity) {}

// Update runs one simulation frame of dt seconds and redraws
func (ss *SimulationSystem) Update(dt float32) {
	if _, err := ss.sim.Frame(float64(dt)); err != nil {
		ss.logger.Debug(context.Background(), "frame skipped", "reason", err.Error())
	}
	ss.sim.Render(ss.renderer)
	if ss.hud != nil {
		ss.hud.SetState(ss.sim.State(), ss.sim.DroppedTicks())
	}
}

// SlingScene is the windowed front-end: mouse in, rope, curve and board out
type SlingScene struct {
	cfg     *config.Config
	sim     *engine.Simulation
	pointer *input.Pointer
	logger  *logging.Logger

	world    *ecs.World
	assets   *AssetManager
	camera   *CameraSystem
	input    *InputSystem
	renderer *EngoRenderer
	hud      *HUDSystem

	subscriptions []*event.Subscription
	fontLoaded    bool
}

// NewSlingScene creates a scene around sim. pointer must be the source sim
// was created with.
func NewSlingScene(cfg *config.Config, sim *engine.Simulation, pointer *input.Pointer, logger *logging.Logger) *SlingScene {
	if logger == nil {
		logger = logging.NewLogger().Component("engo_scene")
	}
	return &SlingScene{
		cfg:     cfg,
		sim:     sim,
		pointer: pointer,
		logger:  logger,
		assets:  NewAssetManager(),
	}
}

// Type returns the scene type (required by Engo)
func (scene *SlingScene) Type() string {
	return "SlingScene"
}

// Preload registers the HUD font (required by Engo)
func (scene *SlingScene) Preload() {
	if err := engo.Files.LoadReaderData(hudFontURL, bytes.NewReader(goregular.TTF)); err != nil {
		scene.logger.Warn(context.Background(), "HUD font unavailable", "error", err.Error())
		return
	}
	scene.fontLoaded = true
}

// Setup is called when the scene starts (required by Engo)
func (scene *SlingScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		panic(fmt.Sprintf("unexpected updater %T", u))
	}
	scene.world = world
	common.SetBackground(color.RGBA{20, 20, 28, 255})

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	if err := scene.assets.LoadAssets(); err != nil {
		scene.logger.Warn(context.Background(), "falling back to flat layers", "error", err.Error())
	}

	SetupInputBindings()
	scene.camera = NewCameraSystem(scene.cfg.Display.PixelsPerUnit)
	scene.camera.SetViewport(float64(engo.GameWidth()), float64(engo.GameHeight()))
	// frame the anchor area and the board's resting spot
	scene.camera.SetTarget(scene.cfg.Skateboard.Position.Scale(0.5))
	world.AddSystem(scene.camera)

	scene.input = NewInputSystem(scene.pointer, scene.camera)
	scene.input.OnQuit(engo.Exit)
	scene.input.OnRestart(func() {
		scene.sim.Stop()
		scene.sim.Start()
	})
	world.AddSystem(scene.input)

	scene.hud = NewHUDSystem(renderSystem)
	if scene.fontLoaded {
		scene.hud.SetFont(scene.newFont())
	}

	scene.renderer = NewEngoRenderer(renderSystem, scene.camera, scene.assets, scene.cfg.Rope.LineWidth)
	world.AddSystem(NewSimulationSystem(scene.sim, scene.renderer, scene.hud, scene.logger))
	world.AddSystem(scene.hud)

	scene.subscribeToEvents()
	scene.sim.Start()
}

func (scene *SlingScene) newFont() *common.Font {
	font := &common.Font{
		URL:  hudFontURL,
		FG:   color.White,
		Size: 14,
	}
	if err := font.CreatePreloaded(); err != nil {
		scene.logger.Warn(context.Background(), "HUD font failed to load", "error", err.Error())
		return nil
	}
	return font
}

// subscribeToEvents forwards releases and delivery failures to the HUD
func (scene *SlingScene) subscribeToEvents() {
	bus := scene.sim.EventBus()
	scene.subscriptions = append(scene.subscriptions,
		bus.Subscribe(event.ImpulseReleased, func(e event.Event) {
			if ie, ok := e.(*event.ImpulseEvent); ok {
				scene.hud.AddNotice(fmt.Sprintf("release #%d (%.2f, %.2f)", ie.Seq, ie.Impulse.X, ie.Impulse.Y), false)
			}
		}),
		bus.Subscribe(event.ReceiverFailed, func(e event.Event) {
			if ee, ok := e.(*event.ErrorEvent); ok {
				scene.hud.AddNotice("send failed: "+ee.Err.Error(), true)
			}
		}),
	)
}

// Exit is called when the scene is exiting (required by Engo)
func (scene *SlingScene) Exit() {
	for _, sub := range scene.subscriptions {
		sub.Cancel()
	}
	scene.subscriptions = nil
	scene.sim.Stop()
	if scene.renderer != nil {
		scene.renderer.Release()
	}
}

// Run opens a window and blocks until it is closed
func Run(cfg *config.Config, sim *engine.Simulation, pointer *input.Pointer, logger *logging.Logger) {
	engo.Run(engo.RunOptions{
		Title:          "slingrope",
		Width:          cfg.Display.Width,
		Height:         cfg.Display.Height,
		StandardInputs: true,
		VSync:          true,
	}, NewSlingScene(cfg, sim, pointer, logger))
}
