package render

import (
	"math"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// layerGlyphs maps each layer to the rune it is drawn with
var layerGlyphs = map[entity.Layer]rune{
	entity.LayerRope:  '#',
	entity.LayerGuide: '.',
	entity.LayerCurve: '*',
	entity.LayerBoard: '=',
}

// layerStyles maps each layer to its terminal colour
var layerStyles = map[entity.Layer]tcell.Style{
	entity.LayerRope:  tcell.StyleDefault.Foreground(tcell.ColorOlive),
	entity.LayerGuide: tcell.StyleDefault.Foreground(tcell.ColorGray),
	entity.LayerCurve: tcell.StyleDefault.Foreground(tcell.ColorAqua),
	entity.LayerBoard: tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
}

type cell struct {
	glyph rune
	layer entity.Layer
	set   bool
}

// TerminalRenderer rasterizes polylines into a character grid and shows it
// on a tcell screen. Terminal cells are roughly twice as tall as they are
// wide, so one world unit spans cellsPerUnit columns but cellsPerUnit/2 rows.
type TerminalRenderer struct {
	screen    tcell.Screen
	width     int
	height    int
	buffer    [][]cell
	scale     float64 // columns per world unit
	centerPos physics.Vector2D
	status    string

	mu sync.Mutex
}

// NewTerminalRenderer creates a renderer drawing on screen. The screen must
// already be initialized.
func NewTerminalRenderer(screen tcell.Screen, cellsPerUnit float64) *TerminalRenderer {
	if cellsPerUnit <= 0 {
		cellsPerUnit = 1
	}
	r := &TerminalRenderer{
		screen: screen,
		scale:  cellsPerUnit,
	}
	r.resize()
	return r
}

// resize matches the buffer to the screen; must be called with r.mu held
// or before the renderer is shared
func (r *TerminalRenderer) resize() {
	width, height := r.screen.Size()
	if width == r.width && height == r.height && r.buffer != nil {
		return
	}
	r.width, r.height = width, height
	r.buffer = make([][]cell, height)
	for i := range r.buffer {
		r.buffer[i] = make([]cell, width)
	}
}

// SetCenter sets the world position shown in the middle of the screen
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centerPos = pos
}

// SetStatus sets a line of text drawn over the top row on Present
func (r *TerminalRenderer) SetStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = text
}

// WorldToScreen converts world coordinates to a screen cell. World Y points
// up, screen rows grow downward.
func (r *TerminalRenderer) WorldToScreen(pos physics.Vector2D) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.worldToScreen(pos)
}

func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := (pos.X-r.centerPos.X)*r.scale + float64(r.width/2)
	screenY := -(pos.Y-r.centerPos.Y)*r.scale/2 + float64(r.height/2)
	return int(math.Floor(screenX + 0.5)), int(math.Floor(screenY + 0.5))
}

// ScreenToWorld converts a screen cell back to world coordinates
func (r *TerminalRenderer) ScreenToWorld(x, y int) physics.Vector2D {
	r.mu.Lock()
	defer r.mu.Unlock()
	return physics.Vector2D{
		X: float64(x-r.width/2)/r.scale + r.centerPos.X,
		Y: -float64(y-r.height/2)*2/r.scale + r.centerPos.Y,
	}
}

// Clear implements entity.Renderer
func (r *TerminalRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resize()
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = cell{}
		}
	}
}

// DrawPolyline implements entity.Renderer. Segments are rasterized with
// Bresenham's algorithm; off-screen cells are clipped.
func (r *TerminalRenderer) DrawPolyline(layer entity.Layer, points []physics.Vector2D) {
	r.mu.Lock()
	defer r.mu.Unlock()

	glyph, ok := layerGlyphs[layer]
	if !ok {
		glyph = '+'
	}

	if len(points) == 1 {
		x, y := r.worldToScreen(points[0])
		r.plot(x, y, glyph, layer)
		return
	}
	for i := 0; i+1 < len(points); i++ {
		if !points[i].IsFinite() || !points[i+1].IsFinite() {
			continue
		}
		x0, y0 := r.worldToScreen(points[i])
		x1, y1 := r.worldToScreen(points[i+1])
		r.line(x0, y0, x1, y1, glyph, layer)
	}
}

func (r *TerminalRenderer) line(x0, y0, x1, y1 int, glyph rune, layer entity.Layer) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	// segments far larger than the screen are not worth walking cell by cell
	if dx-dy > 8*(r.width+r.height)+64 {
		return
	}
	for steps := 0; steps <= dx-dy; steps++ {
		r.plot(x0, y0, glyph, layer)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (r *TerminalRenderer) plot(x, y int, glyph rune, layer entity.Layer) {
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = cell{glyph: glyph, layer: layer, set: true}
	}
}

// Present implements entity.Renderer
func (r *TerminalRenderer) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.screen.Clear()
	for y := range r.buffer {
		for x, c := range r.buffer[y] {
			if !c.set {
				continue
			}
			r.screen.SetContent(x, y, c.glyph, nil, layerStyles[c.layer])
		}
	}
	for i, ch := range []rune(r.status) {
		if i >= r.width {
			break
		}
		r.screen.SetContent(i, 0, ch, nil, tcell.StyleDefault.Reverse(true))
	}
	r.screen.Show()
}

// String returns the rasterized grid with trailing spaces trimmed, one line
// per row
func (r *TerminalRenderer) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for y := range r.buffer {
		row := make([]rune, len(r.buffer[y]))
		for x, c := range r.buffer[y] {
			row[x] = ' '
			if c.set {
				row[x] = c.glyph
			}
		}
		b.WriteString(strings.TrimRight(string(row), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
