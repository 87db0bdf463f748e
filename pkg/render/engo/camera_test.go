// pkg/render/engo/camera_test.go
package engo

import (
	"math"
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/opd-ai/go-slingrope/pkg/physics"
)

func newTestCamera() *CameraSystem {
	camera := NewCameraSystem(40)
	camera.SetViewport(800, 600)
	return camera
}

func TestNewCameraSystem(t *testing.T) {
	camera := NewCameraSystem(40)

	if camera.zoom != 1.0 {
		t.Errorf("Expected default zoom 1.0, got %f", camera.zoom)
	}
	if camera.minZoom != 0.1 || camera.maxZoom != 3.0 {
		t.Errorf("Expected zoom limits [0.1, 3.0], got [%f, %f]", camera.minZoom, camera.maxZoom)
	}
	if !camera.smoothing {
		t.Error("Expected smoothing to be enabled by default")
	}
	if camera.targetSet {
		t.Error("Expected targetSet to be false by default")
	}
	if camera.Scale() != 40 {
		t.Errorf("Expected scale 40, got %f", camera.Scale())
	}

	if NewCameraSystem(0).Scale() != 1 {
		t.Error("Expected non-positive pixelsPerUnit to fall back to 1")
	}
}

func TestCameraSystem_SetTarget_ClearTarget(t *testing.T) {
	camera := newTestCamera()
	first := physics.Vector2D{X: 0, Y: -4}

	t.Run("FirstTargetIsImmediate", func(t *testing.T) {
		camera.SetTarget(first)
		if !camera.targetSet {
			t.Error("Expected targetSet to be true after setting target")
		}
		if camera.GetCurrentPosition() != first {
			t.Errorf("Expected camera at %v, got %v", first, camera.GetCurrentPosition())
		}
	})

	t.Run("LaterTargetIsSmoothed", func(t *testing.T) {
		camera.SetTarget(physics.Vector2D{X: 10, Y: -4})
		if camera.GetCurrentPosition() != first {
			t.Errorf("Expected camera to stay at %v until Update, got %v", first, camera.GetCurrentPosition())
		}
	})

	t.Run("ClearTarget", func(t *testing.T) {
		camera.ClearTarget()
		if camera.targetSet {
			t.Error("Expected targetSet to be false after clearing target")
		}
	})
}

func TestCameraSystem_clampZoom(t *testing.T) {
	camera := newTestCamera()

	testCases := []struct {
		name     string
		input    float32
		expected float32
	}{
		{"ValidZoom", 1.5, 1.5},
		{"BelowMin", 0.05, 0.1},
		{"AboveMax", 5.0, 3.0},
		{"ExactMin", 0.1, 0.1},
		{"ExactMax", 3.0, 3.0},
		{"NegativeZoom", -1.0, 0.1},
		{"ZeroZoom", 0.0, 0.1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if result := camera.clampZoom(tc.input); result != tc.expected {
				t.Errorf("clampZoom(%f) = %f, want %f", tc.input, result, tc.expected)
			}
			camera.SetZoom(tc.input)
			if camera.GetZoom() != tc.expected {
				t.Errorf("SetZoom(%f) left zoom at %f, want %f", tc.input, camera.GetZoom(), tc.expected)
			}
		})
	}
}

func TestCameraSystem_ZoomLimits_ClampCurrentZoom(t *testing.T) {
	camera := newTestCamera()
	camera.SetZoom(2.5)
	camera.SetZoomLimits(0.2, 2.0)

	minZoom, maxZoom := camera.GetZoomLimits()
	if minZoom != 0.2 || maxZoom != 2.0 {
		t.Errorf("Expected limits [0.2, 2.0], got [%f, %f]", minZoom, maxZoom)
	}
	if camera.GetZoom() != 2.0 {
		t.Errorf("Expected zoom to be clamped to 2.0, got %f", camera.GetZoom())
	}
}

func TestCameraSystem_updateCameraPosition(t *testing.T) {
	t.Run("SmoothingEnabled", func(t *testing.T) {
		camera := newTestCamera()
		camera.SetTarget(physics.Vector2D{})
		camera.SetTarget(physics.Vector2D{X: 10, Y: 10})

		camera.updateCameraPosition(0.1)

		// followSpeed 2 * dt 0.1 = 20% of the way
		expected := physics.Vector2D{X: 2, Y: 2}
		if diff := cmp.Diff(expected, camera.GetCurrentPosition(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("position mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("LargeStepDoesNotOvershoot", func(t *testing.T) {
		camera := newTestCamera()
		camera.SetTarget(physics.Vector2D{})
		camera.SetTarget(physics.Vector2D{X: 10})

		camera.updateCameraPosition(5)
		if camera.GetCurrentPosition() != (physics.Vector2D{X: 10}) {
			t.Errorf("Expected camera to stop at target, got %v", camera.GetCurrentPosition())
		}
	})

	t.Run("SmoothingDisabled", func(t *testing.T) {
		camera := newTestCamera()
		camera.EnableSmoothing(false)
		camera.SetTarget(physics.Vector2D{})
		target := physics.Vector2D{X: 200, Y: 200}
		camera.SetTarget(target)

		camera.updateCameraPosition(0.1)
		if camera.GetCurrentPosition() != target {
			t.Errorf("Expected immediate movement to %v, got %v", target, camera.GetCurrentPosition())
		}
	})
}

func TestCameraSystem_WorldToScreen(t *testing.T) {
	testCases := []struct {
		name     string
		zoom     float32
		center   physics.Vector2D
		world    physics.Vector2D
		expected physics.Vector2D
	}{
		{"OriginAtCentre", 1, physics.Vector2D{}, physics.Vector2D{}, physics.Vector2D{X: 400, Y: 300}},
		{"UpIsScreenUp", 1, physics.Vector2D{}, physics.Vector2D{Y: 1}, physics.Vector2D{X: 400, Y: 260}},
		{"RightIsScreenRight", 1, physics.Vector2D{}, physics.Vector2D{X: 2}, physics.Vector2D{X: 480, Y: 300}},
		{"Zoomed", 2, physics.Vector2D{}, physics.Vector2D{X: 1, Y: -1}, physics.Vector2D{X: 480, Y: 380}},
		{"OffsetCamera", 1, physics.Vector2D{X: 5, Y: -8}, physics.Vector2D{X: 5, Y: -8}, physics.Vector2D{X: 400, Y: 300}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			camera := newTestCamera()
			camera.EnableSmoothing(false)
			camera.SetZoom(tc.zoom)
			camera.SetTarget(tc.center)

			got := camera.WorldToScreen(tc.world)
			if diff := cmp.Diff(tc.expected, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("WorldToScreen(%v) mismatch (-want +got):\n%s", tc.world, diff)
			}
		})
	}
}

func TestCameraSystem_CoordinateTransformation_Consistency(t *testing.T) {
	testCases := []struct {
		name      string
		zoom      float32
		cameraPos physics.Vector2D
	}{
		{"ZoomOne_OriginCamera", 1.0, physics.Vector2D{X: 0, Y: 0}},
		{"ZoomTwo_OriginCamera", 2.0, physics.Vector2D{X: 0, Y: 0}},
		{"ZoomHalf_OffsetCamera", 0.5, physics.Vector2D{X: 100, Y: 200}},
		{"ZoomThree_OffsetCamera", 3.0, physics.Vector2D{X: -50, Y: -75}},
	}

	testPoints := []physics.Vector2D{
		{X: 0, Y: 0},
		{X: 100, Y: 100},
		{X: -50, Y: 75},
		{X: 300, Y: -200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			camera := newTestCamera()
			camera.SetZoom(tc.zoom)
			camera.currentPos = tc.cameraPos

			for _, worldPoint := range testPoints {
				backToWorld := camera.ScreenToWorld(camera.WorldToScreen(worldPoint))

				tolerance := 0.001
				if math.Abs(backToWorld.X-worldPoint.X) > tolerance ||
					math.Abs(backToWorld.Y-worldPoint.Y) > tolerance {
					t.Errorf("Round-trip failed for point %v: got %v", worldPoint, backToWorld)
				}
			}
		})
	}
}

func TestCameraSystem_ECSInterface(t *testing.T) {
	camera := newTestCamera()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("ECS method panicked: %v", r)
		}
	}()

	camera.Add(nil, nil, nil)
	var mockEntity ecs.BasicEntity
	camera.Remove(mockEntity)
}
