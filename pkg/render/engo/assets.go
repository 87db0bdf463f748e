// pkg/render/engo/assets.go
package engo

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-slingrope/pkg/entity"
)

// AssetManager owns the drawable and tint used for each polyline layer.
// Until LoadAssets runs every layer is drawn as a flat rectangle, which
// needs no GPU texture.
type AssetManager struct {
	layerDrawables map[entity.Layer]common.Drawable
	layerColors    map[entity.Layer]color.RGBA
	fallback       common.Drawable
}

// layerPatterns are tiled across a segment; 1 marks a lit pixel
var layerPatterns = map[entity.Layer][][]int{
	entity.LayerRope: {
		{1, 1, 0, 1, 1, 0, 1, 1},
		{1, 0, 1, 1, 0, 1, 1, 0},
		{0, 1, 1, 0, 1, 1, 0, 1},
	},
	entity.LayerBoard: {
		{1, 1, 1, 1, 1, 1, 1, 1},
		{1, 0, 1, 0, 1, 0, 1, 1},
		{1, 1, 1, 1, 1, 1, 1, 1},
	},
}

// NewAssetManager creates an asset manager with the default layer tints
func NewAssetManager() *AssetManager {
	return &AssetManager{
		layerDrawables: make(map[entity.Layer]common.Drawable),
		layerColors: map[entity.Layer]color.RGBA{
			entity.LayerRope:  {205, 170, 110, 255},
			entity.LayerGuide: {120, 120, 120, 255},
			entity.LayerCurve: {80, 200, 255, 255},
			entity.LayerBoard: {240, 90, 60, 255},
		},
		fallback: common.Rectangle{},
	}
}

// LoadAssets builds the patterned layer textures. It needs a live GL
// context, so call it from a scene's Preload or Setup.
func (am *AssetManager) LoadAssets() error {
	for layer, pattern := range layerPatterns {
		am.layerDrawables[layer] = am.convertToEngoTexture(am.createPatternImage(pattern))
	}
	return nil
}

// createPatternImage renders a pattern into an RGBA image sized to it
func (am *AssetManager) createPatternImage(pattern [][]int) *image.RGBA {
	height := len(pattern)
	width := 0
	for _, row := range pattern {
		if len(row) > width {
			width = len(row)
		}
	}
	img := am.createBaseImage(width, height)
	am.drawPatternOnImage(img, pattern, width, height)
	return img
}

// createBaseImage creates a transparent RGBA image with the specified dimensions.
func (am *AssetManager) createBaseImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{0, 0, 0, 0}}, image.Point{}, draw.Src)
	return img
}

// drawPatternOnImage draws a 2D pixel pattern onto the provided RGBA image.
// Lit pixels are white so the RenderComponent color tints them.
func (am *AssetManager) drawPatternOnImage(img *image.RGBA, pattern [][]int, width, height int) {
	for y, row := range pattern {
		if y >= height {
			break
		}
		for x, pixel := range row {
			if x >= width {
				break
			}
			if pixel == 1 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
}

// convertToEngoTexture converts an RGBA image to an Engo-compatible texture.
func (am *AssetManager) convertToEngoTexture(img *image.RGBA) common.Drawable {
	bounds := img.Bounds()
	nrgbaImg := image.NewNRGBA(bounds)
	draw.Draw(nrgbaImg, bounds, img, bounds.Min, draw.Src)

	texture := common.NewImageObject(nrgbaImg)
	return common.NewTextureSingle(texture)
}

// LayerDrawable returns the drawable for a layer
func (am *AssetManager) LayerDrawable(layer entity.Layer) common.Drawable {
	if d, ok := am.layerDrawables[layer]; ok {
		return d
	}
	return am.fallback
}

// LayerColor returns the tint for a layer; unknown layers are white
func (am *AssetManager) LayerColor(layer entity.Layer) color.RGBA {
	if c, ok := am.layerColors[layer]; ok {
		return c
	}
	return color.RGBA{255, 255, 255, 255}
}

// SetLayerColor overrides the tint for a layer
func (am *AssetManager) SetLayerColor(layer entity.Layer, c color.RGBA) {
	am.layerColors[layer] = c
}
