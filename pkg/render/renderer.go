// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// NullRenderer is a headless implementation of entity.Renderer that logs
// what would have been drawn.
type NullRenderer struct {
	logger *logging.Logger
}

// NewNullRenderer creates a new NullRenderer with structured logging.
func NewNullRenderer() *NullRenderer {
	return NewNullRendererWithLogger(logging.NewLogger())
}

// NewNullRendererWithLogger creates a NullRenderer that logs to logger
func NewNullRendererWithLogger(logger *logging.Logger) *NullRenderer {
	return &NullRenderer{
		logger: logger.Component("null_renderer"),
	}
}

// Clear implements entity.Renderer.
func (d *NullRenderer) Clear() {
	ctx := context.Background()
	d.logger.Debug(ctx, "Clear called")
}

// Present implements entity.Renderer.
func (d *NullRenderer) Present() {
	ctx := context.Background()
	d.logger.Debug(ctx, "Present called")
}

// DrawPolyline implements entity.Renderer.
func (d *NullRenderer) DrawPolyline(layer entity.Layer, points []physics.Vector2D) {
	ctx := context.Background()
	if len(points) == 0 {
		d.logger.Debug(ctx, "DrawPolyline called with no points", "layer", layer.String())
		return
	}
	d.logger.Debug(ctx, "DrawPolyline called",
		"layer", layer.String(),
		"point_count", len(points),
		"first_x", points[0].X,
		"first_y", points[0].Y,
		"last_x", points[len(points)-1].X,
		"last_y", points[len(points)-1].Y,
	)
}
