// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// CameraSystem maps world units (Y up) to window pixels (Y down). The view
// is centred on the current camera position and scaled by pixelsPerUnit*zoom.
type CameraSystem struct {
	// Target to follow
	target    physics.Vector2D
	targetSet bool

	// Camera properties
	pixelsPerUnit float64
	zoom          float32
	minZoom       float32
	maxZoom       float32

	// Smooth following
	followSpeed float32
	smoothing   bool

	// Viewport in pixels
	width  float64
	height float64

	currentPos physics.Vector2D
}

// NewCameraSystem creates a camera at the origin
func NewCameraSystem(pixelsPerUnit float64) *CameraSystem {
	if pixelsPerUnit <= 0 {
		pixelsPerUnit = 1
	}
	return &CameraSystem{
		pixelsPerUnit: pixelsPerUnit,
		zoom:          1.0,
		minZoom:       0.1,
		maxZoom:       3.0,
		followSpeed:   2.0,
		smoothing:     true,
	}
}

// Add satisfies the ecs.System interface
func (cs *CameraSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for camera system
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {
	// Not used for camera system
}

// Update refreshes the viewport, handles zoom input and follows the target
func (cs *CameraSystem) Update(dt float32) {
	cs.SetViewport(float64(engo.GameWidth()), float64(engo.GameHeight()))
	cs.handleZoomInput()

	if cs.targetSet {
		cs.updateCameraPosition(dt)
	}
}

// handleZoomInput processes zoom-related input
func (cs *CameraSystem) handleZoomInput() {
	scrollY := engo.Input.Mouse.ScrollY
	if scrollY != 0 {
		cs.SetZoom(cs.zoom * (1.0 + scrollY*0.1))
	}

	if engo.Input.Button(buttonResetZoom).JustPressed() {
		cs.SetZoom(1.0)
	}
}

// updateCameraPosition moves the camera toward the target
func (cs *CameraSystem) updateCameraPosition(dt float32) {
	if !cs.smoothing {
		cs.currentPos = cs.target
		return
	}
	step := float64(cs.followSpeed) * float64(dt)
	if step > 1 {
		step = 1
	}
	cs.currentPos = cs.currentPos.Lerp(cs.target, step)
}

// SetViewport sets the window size in pixels
func (cs *CameraSystem) SetViewport(width, height float64) {
	cs.width = width
	cs.height = height
}

// Viewport returns the window size in pixels
func (cs *CameraSystem) Viewport() (float64, float64) {
	return cs.width, cs.height
}

// SetTarget sets the position the camera follows. The first target, or any
// target while smoothing is off, is applied immediately.
func (cs *CameraSystem) SetTarget(target physics.Vector2D) {
	first := !cs.targetSet
	cs.target = target
	cs.targetSet = true

	if first || !cs.smoothing {
		cs.currentPos = target
	}
}

// ClearTarget stops following
func (cs *CameraSystem) ClearTarget() {
	cs.targetSet = false
}

// SetZoom sets the camera zoom level
func (cs *CameraSystem) SetZoom(zoom float32) {
	cs.zoom = cs.clampZoom(zoom)
}

// GetZoom returns the current zoom level
func (cs *CameraSystem) GetZoom() float32 {
	return cs.zoom
}

// clampZoom ensures zoom is within valid bounds
func (cs *CameraSystem) clampZoom(zoom float32) float32 {
	if zoom < cs.minZoom {
		return cs.minZoom
	}
	if zoom > cs.maxZoom {
		return cs.maxZoom
	}
	return zoom
}

// SetZoomLimits sets the minimum and maximum zoom levels
func (cs *CameraSystem) SetZoomLimits(min, max float32) {
	cs.minZoom = min
	cs.maxZoom = max
	cs.zoom = cs.clampZoom(cs.zoom)
}

// GetZoomLimits returns the current zoom limits
func (cs *CameraSystem) GetZoomLimits() (float32, float32) {
	return cs.minZoom, cs.maxZoom
}

// EnableSmoothing enables or disables camera smoothing
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// GetCurrentPosition returns the world point at the centre of the view
func (cs *CameraSystem) GetCurrentPosition() physics.Vector2D {
	return cs.currentPos
}

// Scale returns the number of pixels per world unit at the current zoom
func (cs *CameraSystem) Scale() float64 {
	return cs.pixelsPerUnit * float64(cs.zoom)
}

// WorldToScreen converts world coordinates to window pixels
func (cs *CameraSystem) WorldToScreen(worldPos physics.Vector2D) physics.Vector2D {
	scale := cs.Scale()
	return physics.Vector2D{
		X: (worldPos.X-cs.currentPos.X)*scale + cs.width/2,
		Y: cs.height/2 - (worldPos.Y-cs.currentPos.Y)*scale,
	}
}

// ScreenToWorld converts window pixels to world coordinates
func (cs *CameraSystem) ScreenToWorld(screenPos physics.Vector2D) physics.Vector2D {
	scale := cs.Scale()
	return physics.Vector2D{
		X: (screenPos.X-cs.width/2)/scale + cs.currentPos.X,
		Y: (cs.height/2-screenPos.Y)/scale + cs.currentPos.Y,
	}
}

const (
	buttonResetZoom = "resetZoom"
	buttonQuit      = "quit"
)

// SetupCameraControls registers the camera and window key bindings
func SetupCameraControls() {
	engo.Input.RegisterButton(buttonResetZoom, engo.KeyR)
	engo.Input.RegisterButton(buttonQuit, engo.KeyEscape)
}
