// pkg/render/engo/renderer.go
package engo

import (
	"math"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// entitySink is the part of common.RenderSystem the renderer needs
type entitySink interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

// lineEntity is one drawn segment of a polyline
type lineEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent

	layer entity.Layer
}

// EngoRenderer implements entity.Renderer on top of an Engo render system.
// Each polyline segment is a thin rotated rectangle; entities are pooled
// and reused across frames, unused ones are hidden on Present.
type EngoRenderer struct {
	sink   entitySink
	camera *CameraSystem
	assets *AssetManager

	// Stroke thickness in world units
	lineWidth float64

	lines []*lineEntity
	used  int

	mu sync.Mutex
}

// NewEngoRenderer creates a renderer drawing through sink. lineWidth is in
// world units and scales with the camera.
func NewEngoRenderer(sink entitySink, camera *CameraSystem, assets *AssetManager, lineWidth float64) *EngoRenderer {
	if assets == nil {
		assets = NewAssetManager()
	}
	return &EngoRenderer{
		sink:      sink,
		camera:    camera,
		assets:    assets,
		lineWidth: lineWidth,
	}
}

// Clear implements entity.Renderer
func (r *EngoRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.used = 0
}

// DrawPolyline implements entity.Renderer. Non-finite points break the
// line; a single point is drawn as a square dot.
func (r *EngoRenderer) DrawPolyline(layer entity.Layer, points []physics.Vector2D) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thickness := r.lineWidth * r.camera.Scale()
	if thickness < 1 {
		thickness = 1
	}

	if len(points) == 1 {
		if points[0].IsFinite() {
			r.placeDot(layer, r.camera.WorldToScreen(points[0]), thickness)
		}
		return
	}

	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		if !a.IsFinite() || !b.IsFinite() {
			continue
		}
		r.placeSegment(layer, r.camera.WorldToScreen(a), r.camera.WorldToScreen(b), thickness)
	}
}

// Present implements entity.Renderer
func (r *EngoRenderer) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, line := range r.lines {
		line.Hidden = i >= r.used
	}
}

// Visible returns the number of segments drawn since the last Clear
func (r *EngoRenderer) Visible() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Release removes every pooled entity from the render system
func (r *EngoRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range r.lines {
		r.sink.Remove(line.BasicEntity)
	}
	r.lines = nil
	r.used = 0
}

func (r *EngoRenderer) placeSegment(layer entity.Layer, a, b physics.Vector2D, thickness float64) {
	pos, length, rotation, ok := segmentTransform(a, b, thickness)
	if !ok {
		return
	}
	line := r.nextLine(layer)
	line.Position = pos
	line.Width = length
	line.Height = float32(thickness)
	line.Rotation = rotation
	line.Scale = fitScale(line.Drawable, line.Width, line.Height)
}

func (r *EngoRenderer) placeDot(layer entity.Layer, p physics.Vector2D, thickness float64) {
	line := r.nextLine(layer)
	half := thickness / 2
	line.Position = engo.Point{X: float32(p.X - half), Y: float32(p.Y - half)}
	line.Width = float32(thickness)
	line.Height = float32(thickness)
	line.Rotation = 0
	line.Scale = fitScale(line.Drawable, line.Width, line.Height)
}

// nextLine returns the next pooled entity, restyled for layer
func (r *EngoRenderer) nextLine(layer entity.Layer) *lineEntity {
	if r.used == len(r.lines) {
		line := &lineEntity{BasicEntity: ecs.NewBasic(), layer: -1}
		r.lines = append(r.lines, line)
		r.sink.Add(&line.BasicEntity, &line.RenderComponent, &line.SpaceComponent)
	}

	line := r.lines[r.used]
	r.used++
	if line.layer != layer {
		line.layer = layer
		line.Drawable = r.assets.LayerDrawable(layer)
		line.Color = r.assets.LayerColor(layer)
	}
	line.Hidden = false
	return line
}

// fitScale stretches a texture to w x h pixels. Shapes without a size of
// their own are drawn from the SpaceComponent and keep unit scale.
func fitScale(d common.Drawable, w, h float32) engo.Point {
	if d == nil || d.Width() <= 0 || d.Height() <= 0 {
		return engo.Point{X: 1, Y: 1}
	}
	return engo.Point{X: w / d.Width(), Y: h / d.Height()}
}

// segmentTransform places a rectangle of the given thickness along a->b in
// screen space. The rectangle is offset by half its thickness so the
// stroke is centred on the segment. Degenerate segments report ok=false.
func segmentTransform(a, b physics.Vector2D, thickness float64) (pos engo.Point, length, rotation float32, ok bool) {
	d := b.Sub(a)
	l := d.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return engo.Point{}, 0, 0, false
	}

	// shift the top-left corner half a thickness against the segment normal
	normal := physics.Vector2D{X: -d.Y / l, Y: d.X / l}
	origin := a.Sub(normal.Scale(thickness / 2))

	angle := math.Atan2(d.Y, d.X) * 180 / math.Pi
	return engo.Point{X: float32(origin.X), Y: float32(origin.Y)}, float32(l), float32(angle), true
}
