// Package viewport computes pan/zoom transforms that frame a laid-out plan.
package viewport

import (
	"math"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Config bounds the transforms produced by Fit and Focus.
type Config struct {
	Padding   float64 `json:"padding"`
	MinZoom   float64 `json:"min_zoom"`
	MaxZoom   float64 `json:"max_zoom"`
	FocusZoom float64 `json:"focus_zoom"`
}

// DefaultConfig returns the standard zoom limits.
func DefaultConfig() Config {
	return Config{Padding: 50, MinZoom: 0.3, MaxZoom: 1.5, FocusZoom: 1.0}
}

func (c Config) clamp(z float64) float64 {
	if c.MinZoom > 0 && z < c.MinZoom {
		return c.MinZoom
	}
	if c.MaxZoom > 0 && z > c.MaxZoom {
		return c.MaxZoom
	}
	return z
}

// Transform maps world coordinates to screen coordinates:
// screen = world*Zoom + (X, Y).
type Transform struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Identity is the neutral transform.
var Identity = Transform{X: 0, Y: 0, Zoom: 1}

// Apply maps a world point to the screen.
func (t Transform) Apply(p model.Point) model.Point {
	return model.Point{X: p.X*t.Zoom + t.X, Y: p.Y*t.Zoom + t.Y}
}

// Invert maps a screen point back to world coordinates.
func (t Transform) Invert(p model.Point) model.Point {
	if t.Zoom == 0 {
		return p
	}
	return model.Point{X: (p.X - t.X) / t.Zoom, Y: (p.Y - t.Y) / t.Zoom}
}

func footprint(n layout.NodePlacement) model.Size {
	if n.Size.IsZero() {
		return layout.DefaultFootprint()
	}
	return n.Size
}

// Fit returns the transform that centers every node in a viewport of the
// given size, with cfg.Padding around the bounding box and zoom clamped to
// [cfg.MinZoom, cfg.MaxZoom]. Nodes without a size count as the default
// footprint. No nodes, or a viewport without area, yields Identity.
func Fit(nodes []layout.NodePlacement, size model.Size, cfg Config) Transform {
	if len(nodes) == 0 || size.IsZero() {
		return Identity
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		fp := footprint(n)
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxX = math.Max(maxX, n.Position.X+fp.Width)
		maxY = math.Max(maxY, n.Position.Y+fp.Height)
	}
	return frame(minX, minY, maxX-minX, maxY-minY, size, cfg, math.Inf(1))
}

// Focus returns the transform that centers one node at cfg.FocusZoom.
func Focus(node layout.NodePlacement, size model.Size, cfg Config) Transform {
	if size.IsZero() {
		return Identity
	}
	zoom := cfg.FocusZoom
	if zoom <= 0 {
		zoom = 1
	}
	fp := footprint(node)
	return frame(node.Position.X, node.Position.Y, fp.Width, fp.Height, size, cfg, zoom)
}

// frame centers the box (x, y, w, h) in the viewport. The zoom is the
// largest that fits the padded box, capped at limit, then clamped.
func frame(x, y, w, h float64, size model.Size, cfg Config, limit float64) Transform {
	pw := w + 2*cfg.Padding
	ph := h + 2*cfg.Padding
	zoom := limit
	if pw > 0 && ph > 0 {
		zoom = math.Min(zoom, math.Min(size.Width/pw, size.Height/ph))
	}
	if math.IsInf(zoom, 0) || math.IsNaN(zoom) {
		zoom = 1
	}
	zoom = cfg.clamp(zoom)
	cx := x + w/2
	cy := y + h/2
	return Transform{
		X:    size.Width/2 - cx*zoom,
		Y:    size.Height/2 - cy*zoom,
		Zoom: zoom,
	}
}
