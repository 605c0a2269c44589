package layout

import (
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Direction is the axis along which ranks advance.
type Direction string

const (
	TopToBottom Direction = "TB"
	BottomToTop Direction = "BT"
	LeftToRight Direction = "LR"
	RightToLeft Direction = "RL"
)

// ParseDirection accepts TB/BT/LR/RL in any case.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("unknown layout direction %q (want TB, BT, LR or RL)", s)
	}
	return d, nil
}

// IsValid returns true if the direction is a recognized value
func (d Direction) IsValid() bool {
	switch d {
	case TopToBottom, BottomToTop, LeftToRight, RightToLeft:
		return true
	}
	return false
}

func (d Direction) horizontal() bool {
	return d == LeftToRight || d == RightToLeft
}

// Options controls the layout pass.
type Options struct {
	Direction   Direction `json:"direction"`
	NodeSpacing float64   `json:"node_spacing"` // gap between neighbours within a rank
	RankSpacing float64   `json:"rank_spacing"` // gap between consecutive ranks
}

// Default spacing values.
const (
	DefaultNodeSpacing = 60
	DefaultRankSpacing = 100
)

// DefaultOptions returns a top-to-bottom layout with default spacing.
func DefaultOptions() Options {
	return Options{
		Direction:   TopToBottom,
		NodeSpacing: DefaultNodeSpacing,
		RankSpacing: DefaultRankSpacing,
	}
}

// normalized fills zero or invalid fields with defaults.
func (o Options) normalized() Options {
	if !o.Direction.IsValid() {
		o.Direction = TopToBottom
	}
	if o.NodeSpacing <= 0 {
		o.NodeSpacing = DefaultNodeSpacing
	}
	if o.RankSpacing <= 0 {
		o.RankSpacing = DefaultRankSpacing
	}
	return o
}

var footprints = map[model.NodeType]model.Size{
	model.TypeRoot:      {Width: 280, Height: 100},
	model.TypePhase:     {Width: 260, Height: 90},
	model.TypeTask:      {Width: 240, Height: 80},
	model.TypeMilestone: {Width: 200, Height: 60},
}

// Footprint returns the nominal size of a node of the given type.
// Unknown types get the task footprint.
func Footprint(t model.NodeType) model.Size {
	if s, ok := footprints[t]; ok {
		return s
	}
	return footprints[model.TypeTask]
}

// DefaultFootprint is the size used when nothing better is known.
func DefaultFootprint() model.Size {
	return footprints[model.TypeTask]
}

// EdgeStyle describes how an edge is drawn.
type EdgeStyle struct {
	Stroke      string    `json:"stroke"`
	StrokeWidth float64   `json:"stroke_width"`
	Dash        []float64 `json:"dash,omitempty"`
	Animated    bool      `json:"animated,omitempty"`
}

// DashArray renders Dash in SVG stroke-dasharray syntax ("" for solid).
func (s EdgeStyle) DashArray() string {
	if len(s.Dash) == 0 {
		return ""
	}
	parts := make([]string, len(s.Dash))
	for i, d := range s.Dash {
		parts[i] = fmt.Sprintf("%g", d)
	}
	return strings.Join(parts, ",")
}

var edgeStyles = map[model.EdgeType]EdgeStyle{
	model.EdgeHierarchical: {Stroke: "#64748b", StrokeWidth: 2},
	model.EdgeDependency:   {Stroke: "#f59e0b", StrokeWidth: 2, Dash: []float64{6, 4}, Animated: true},
	model.EdgeReference:    {Stroke: "#9ca3af", StrokeWidth: 1, Dash: []float64{2, 3}},
	model.EdgeSequence:     {Stroke: "#6366f1", StrokeWidth: 2},
}

// StyleFor returns the style for an edge type. Unknown types are drawn as
// hierarchical edges.
func StyleFor(t model.EdgeType) EdgeStyle {
	s, ok := edgeStyles[t]
	if !ok {
		s = edgeStyles[model.EdgeHierarchical]
	}
	if s.Dash != nil {
		s.Dash = append([]float64(nil), s.Dash...)
	}
	return s
}
