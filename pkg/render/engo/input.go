// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-slingrope/pkg/input"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

const buttonRestart = "restart"

// InputSystem copies the window mouse into an input.Pointer in world
// coordinates. Only the left button drives the gesture.
type InputSystem struct {
	pointer *input.Pointer
	camera  *CameraSystem

	pressed bool

	// Key actions; nil means ignored
	onQuit    func()
	onRestart func()
}

// NewInputSystem creates an input system writing to pointer
func NewInputSystem(pointer *input.Pointer, camera *CameraSystem) *InputSystem {
	return &InputSystem{
		pointer: pointer,
		camera:  camera,
	}
}

// OnQuit sets the action for the quit key
func (is *InputSystem) OnQuit(fn func()) {
	is.onQuit = fn
}

// OnRestart sets the action for the restart key
func (is *InputSystem) OnRestart(fn func()) {
	is.onRestart = fn
}

// Add satisfies the ecs.System interface
func (is *InputSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for input system
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {
	// Not used for input system
}

// Update samples the mouse and the key bindings
func (is *InputSystem) Update(dt float32) {
	mouse := engo.Input.Mouse
	is.handleMouse(mouse.X, mouse.Y, mouse.Action, mouse.Button)

	if engo.Input.Button(buttonQuit).JustPressed() && is.onQuit != nil {
		is.onQuit()
	}
	if engo.Input.Button(buttonRestart).JustPressed() && is.onRestart != nil {
		is.onRestart()
	}
}

// handleMouse folds one mouse sample into the pointer. Press and release
// of buttons other than the left one only move the pointer.
func (is *InputSystem) handleMouse(x, y float32, action engo.Action, button engo.MouseButton) {
	if button == engo.MouseButtonLeft {
		switch action {
		case engo.Press:
			is.pressed = true
		case engo.Release:
			is.pressed = false
		}
	}

	world := is.camera.ScreenToWorld(physics.Vector2D{X: float64(x), Y: float64(y)})
	is.pointer.Set(input.Snapshot{Position: world, Pressed: is.pressed})
}

// Pressed reports whether the left button is held
func (is *InputSystem) Pressed() bool {
	return is.pressed
}

// SetupInputBindings registers the key bindings used by the scene
func SetupInputBindings() {
	SetupCameraControls()
	engo.Input.RegisterButton(buttonRestart, engo.KeyN)
}
