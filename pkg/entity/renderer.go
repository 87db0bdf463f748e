package entity

import (
	"github.com/opd-ai/go-slingrope/pkg/physics"
)

// Layer identifies what a polyline represents so renderers can style it
type Layer int

const (
	LayerRope Layer = iota
	LayerGuide
	LayerCurve
	LayerBoard
)

// String returns the layer name
func (l Layer) String() string {
	switch l {
	case LayerRope:
		return "rope"
	case LayerGuide:
		return "guide"
	case LayerCurve:
		return "curve"
	case LayerBoard:
		return "board"
	default:
		return "unknown"
	}
}

// Renderer draws world-space polylines. Implementations must not retain
// the points slice after DrawPolyline returns.
type Renderer interface {
	Clear()
	DrawPolyline(layer Layer, points []physics.Vector2D)
	Present()
}
