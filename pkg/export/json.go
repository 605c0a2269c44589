package export

import (
	"io"

	json "github.com/goccy/go-json"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Document is the JSON rendering of a laid-out plan.
type Document struct {
	PlanID    string                 `json:"plan_id,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Direction layout.Direction       `json:"direction"`
	Bounds    Bounds                 `json:"bounds"`
	Nodes     []DocumentNode         `json:"nodes"`
	Edges     []layout.EdgePlacement `json:"edges"`
}

// Bounds is the bounding box of all node footprints.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DocumentNode is a placement joined with the node's display fields.
type DocumentNode struct {
	layout.NodePlacement
	Title  string       `json:"title,omitempty"`
	Status model.Status `json:"status,omitempty"`
	// Moved is set when the position comes from a manual override.
	Moved bool `json:"moved,omitempty"`
}

// NewDocument joins res with plan. computed, when non-nil, is the layout
// before overrides and is used to flag moved nodes.
func NewDocument(plan *model.Plan, res layout.Result, computed *layout.Result) Document {
	origin, size := res.Bounds()
	doc := Document{
		Direction: res.Direction,
		Bounds:    Bounds{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height},
		Nodes:     make([]DocumentNode, 0, len(res.Nodes)),
		Edges:     res.Edges,
	}
	if doc.Edges == nil {
		doc.Edges = []layout.EdgePlacement{}
	}
	var idx map[string]int
	if plan != nil {
		doc.PlanID = plan.ID
		doc.Title = plan.Title
		idx = plan.Index()
	}
	for _, p := range res.Nodes {
		dn := DocumentNode{NodePlacement: p}
		if i, ok := idx[p.ID]; ok {
			dn.Title = plan.Nodes[i].Title
			dn.Status = plan.Nodes[i].Status
		}
		if computed != nil {
			if orig, ok := computed.Position(p.ID); ok && orig != p.Position {
				dn.Moved = true
			}
		}
		doc.Nodes = append(doc.Nodes, dn)
	}
	return doc
}

// WriteJSON writes NewDocument(plan, res, computed) as indented JSON.
func WriteJSON(w io.Writer, plan *model.Plan, res layout.Result, computed *layout.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(plan, res, computed))
}
