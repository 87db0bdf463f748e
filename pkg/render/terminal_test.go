package render

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

func newTestScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init failed: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(width, height)
	return screen
}

// assertFrame compares the rasterized grid with an expected picture and
// prints a unified diff on mismatch
func assertFrame(t *testing.T, expected []string, r *TerminalRenderer) {
	t.Helper()
	want := strings.Join(expected, "\n") + "\n"
	got := r.String()
	if want == got {
		return
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "Expected",
		ToFile:   "Current",
		Context:  0,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	t.Errorf("frame mismatch:\n%s", text)
}

func TestNewTerminalRenderer_UsesScreenSize(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		scale  float64
		want   float64
	}{
		{"small", 10, 5, 1, 1},
		{"medium", 80, 24, 4, 4},
		{"non_positive_scale", 20, 10, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := NewTerminalRenderer(newTestScreen(t, tt.width, tt.height), tt.scale)

			if renderer.width != tt.width || renderer.height != tt.height {
				t.Errorf("expected %dx%d, got %dx%d", tt.width, tt.height, renderer.width, renderer.height)
			}
			if len(renderer.buffer) != tt.height || len(renderer.buffer[0]) != tt.width {
				t.Errorf("buffer is %dx%d", len(renderer.buffer[0]), len(renderer.buffer))
			}
			if renderer.scale != tt.want {
				t.Errorf("expected scale %v, got %v", tt.want, renderer.scale)
			}
		})
	}
}

func TestWorldToScreen_ConvertsCoordinates_Correctly(t *testing.T) {
	renderer := NewTerminalRenderer(newTestScreen(t, 20, 10), 2)

	tests := []struct {
		name   string
		center physics.Vector2D
		world  physics.Vector2D
		x, y   int
	}{
		{"origin_is_center", physics.Vector2D{}, physics.Vector2D{}, 10, 5},
		{"right_and_up", physics.Vector2D{}, physics.Vector2D{X: 2, Y: 2}, 14, 3},
		{"left_and_down", physics.Vector2D{}, physics.Vector2D{X: -1, Y: -3}, 8, 8},
		{"moved_center", physics.Vector2D{X: 5, Y: 5}, physics.Vector2D{X: 5, Y: 5}, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer.SetCenter(tt.center)
			x, y := renderer.WorldToScreen(tt.world)
			if x != tt.x || y != tt.y {
				t.Errorf("WorldToScreen(%v) = (%d, %d), want (%d, %d)", tt.world, x, y, tt.x, tt.y)
			}
			if back := renderer.ScreenToWorld(x, y); back != tt.world {
				t.Errorf("ScreenToWorld(%d, %d) = %v, want %v", x, y, back, tt.world)
			}
		})
	}
}

func TestTerminalRenderer_RasterizesLayers(t *testing.T) {
	screen := newTestScreen(t, 20, 10)
	renderer := NewTerminalRenderer(screen, 2)

	renderer.Clear()
	renderer.DrawPolyline(entity.LayerRope, []physics.Vector2D{{X: 0, Y: 0}, {X: 0, Y: -3}})
	renderer.DrawPolyline(entity.LayerCurve, []physics.Vector2D{{X: -2, Y: 1}, {X: 2, Y: 1}})
	renderer.DrawPolyline(entity.LayerGuide, []physics.Vector2D{{X: -4, Y: -4}, {X: -2, Y: -2}})
	renderer.Present()

	assertFrame(t, []string{
		"",
		"",
		"",
		"",
		"      *********",
		"          #",
		"          #",
		"     ..   #",
		"   ..     #",
		"  .",
	}, renderer)

	mainc, _, style, _ := screen.GetContent(10, 6)
	if mainc != '#' {
		t.Errorf("screen cell (10, 6) = %q, want '#'", mainc)
	}
	if style != layerStyles[entity.LayerRope] {
		t.Errorf("rope cell style = %v, want the rope style", style)
	}
}

func TestTerminalRenderer_ClipsAndSkipsDegeneratePoints(t *testing.T) {
	renderer := NewTerminalRenderer(newTestScreen(t, 8, 4), 1)

	renderer.Clear()
	renderer.DrawPolyline(entity.LayerBoard, []physics.Vector2D{{X: -10, Y: 0}, {X: 10, Y: 0}})
	renderer.DrawPolyline(entity.LayerRope, []physics.Vector2D{{X: 1e12, Y: 1e12}, {X: -1e12, Y: 0}})
	renderer.DrawPolyline(entity.LayerCurve, nil)
	renderer.DrawPolyline(entity.LayerGuide, []physics.Vector2D{{X: 1, Y: 0}})

	assertFrame(t, []string{
		"",
		"",
		"=====.==",
		"",
	}, renderer)
}

func TestTerminalRenderer_ClearResetsGrid(t *testing.T) {
	renderer := NewTerminalRenderer(newTestScreen(t, 6, 3), 1)

	renderer.DrawPolyline(entity.LayerRope, []physics.Vector2D{{X: -3, Y: 0}, {X: 3, Y: 0}})
	renderer.Clear()

	assertFrame(t, []string{"", "", ""}, renderer)
}

func TestTerminalRenderer_ClearFollowsResize(t *testing.T) {
	screen := newTestScreen(t, 6, 3)
	renderer := NewTerminalRenderer(screen, 1)

	screen.SetSize(12, 5)
	renderer.Clear()

	if renderer.width != 12 || renderer.height != 5 {
		t.Errorf("expected 12x5 after resize, got %dx%d", renderer.width, renderer.height)
	}
}

func TestTerminalRenderer_StatusLine(t *testing.T) {
	screen := newTestScreen(t, 10, 3)
	renderer := NewTerminalRenderer(screen, 1)

	renderer.SetStatus("hi")
	renderer.Clear()
	renderer.Present()

	for i, want := range "hi" {
		mainc, _, _, _ := screen.GetContent(i, 0)
		if mainc != want {
			t.Errorf("status cell %d = %q, want %q", i, mainc, want)
		}
	}
}

func TestTerminalInput_HandleEvent(t *testing.T) {
	screen := newTestScreen(t, 20, 10)
	renderer := NewTerminalRenderer(screen, 2)
	in := NewTerminalInput(renderer)

	if !in.HandleEvent(tcell.NewEventMouse(14, 3, tcell.Button1, tcell.ModNone)) {
		t.Fatal("mouse event requested quit")
	}
	snap := in.Snapshot()
	if !snap.Pressed || snap.Position != (physics.Vector2D{X: 2, Y: 2}) {
		t.Errorf("after press: %+v, want pressed at (2, 2)", snap)
	}

	in.HandleEvent(tcell.NewEventMouse(10, 5, tcell.ButtonNone, tcell.ModNone))
	snap = in.Snapshot()
	if snap.Pressed || snap.Position != (physics.Vector2D{}) {
		t.Errorf("after release: %+v, want released at origin", snap)
	}

	quitKeys := []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
	}
	for _, ev := range quitKeys {
		if in.HandleEvent(ev) {
			t.Errorf("key %v did not request quit", ev.Name())
		}
	}
	if !in.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unrelated key requested quit")
	}
}
