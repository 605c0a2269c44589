package viewport

import (
	"math"
	"testing"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

func placement(id string, x, y, w, h float64) layout.NodePlacement {
	return layout.NodePlacement{ID: id, Position: model.Point{X: x, Y: y}, Size: model.Size{Width: w, Height: h}}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFitEmpty(t *testing.T) {
	got := Fit(nil, model.Size{Width: 800, Height: 600}, DefaultConfig())
	if got != (Transform{X: 0, Y: 0, Zoom: 1}) {
		t.Errorf("expected identity for no nodes, got %+v", got)
	}
}

func TestFitZeroViewport(t *testing.T) {
	nodes := []layout.NodePlacement{placement("a", 0, 0, 240, 80)}
	if got := Fit(nodes, model.Size{}, DefaultConfig()); got != Identity {
		t.Errorf("expected identity for zero viewport, got %+v", got)
	}
}

func TestFitSingleNodeClampsToMaxZoom(t *testing.T) {
	nodes := []layout.NodePlacement{placement("a", 0, 0, 240, 80)}
	got := Fit(nodes, model.Size{Width: 1000, Height: 800}, DefaultConfig())
	if got.Zoom != 1.5 {
		t.Fatalf("expected zoom clamped to 1.5, got %v", got.Zoom)
	}
	if !approx(got.X, 500-120*1.5) || !approx(got.Y, 400-40*1.5) {
		t.Errorf("expected node centered, got %+v", got)
	}
	c := got.Apply(model.Point{X: 120, Y: 40})
	if !approx(c.X, 500) || !approx(c.Y, 400) {
		t.Errorf("node center should map to viewport center, got %+v", c)
	}
}

func TestFitLargePlanClampsToMinZoom(t *testing.T) {
	nodes := []layout.NodePlacement{
		placement("a", 0, 0, 240, 80),
		placement("b", 20000, 15000, 240, 80),
	}
	got := Fit(nodes, model.Size{Width: 800, Height: 600}, DefaultConfig())
	if got.Zoom != 0.3 {
		t.Errorf("expected zoom clamped to 0.3, got %v", got.Zoom)
	}
}

func TestFitUsesPadding(t *testing.T) {
	nodes := []layout.NodePlacement{placement("a", 0, 0, 400, 100), placement("b", 400, 0, 400, 100)}
	cfg := Config{Padding: 100, MinZoom: 0.1, MaxZoom: 5}
	got := Fit(nodes, model.Size{Width: 500, Height: 1000}, cfg)
	// Width-bound: 500 / (800 + 200).
	if !approx(got.Zoom, 0.5) {
		t.Errorf("expected zoom 0.5, got %v", got.Zoom)
	}
	left := got.Apply(model.Point{X: 0, Y: 0})
	if !approx(left.X, 50) {
		t.Errorf("expected padding of 50px on screen, got %v", left.X)
	}
}

func TestFitApproximatesMissingSize(t *testing.T) {
	nodes := []layout.NodePlacement{{ID: "a"}}
	got := Fit(nodes, model.Size{Width: 1000, Height: 800}, DefaultConfig())
	want := Fit([]layout.NodePlacement{placement("a", 0, 0, 240, 80)}, model.Size{Width: 1000, Height: 800}, DefaultConfig())
	if got != want {
		t.Errorf("expected default footprint approximation %+v, got %+v", want, got)
	}
}

func TestFocusCentersNode(t *testing.T) {
	n := placement("a", 300, 500, 240, 80)
	got := Focus(n, model.Size{Width: 1000, Height: 800}, DefaultConfig())
	if got.Zoom != 1 {
		t.Errorf("expected focus zoom 1, got %v", got.Zoom)
	}
	c := got.Apply(n.Center())
	if !approx(c.X, 500) || !approx(c.Y, 400) {
		t.Errorf("expected node at viewport center, got %+v", c)
	}
}

func TestFocusShrinksInSmallViewport(t *testing.T) {
	n := placement("a", 0, 0, 240, 80)
	got := Focus(n, model.Size{Width: 170, Height: 400}, DefaultConfig())
	// 170 / (240+100) = 0.5
	if !approx(got.Zoom, 0.5) {
		t.Errorf("expected zoom 0.5, got %v", got.Zoom)
	}
}

func TestTransformInvert(t *testing.T) {
	tr := Transform{X: 30, Y: -12, Zoom: 0.75}
	p := model.Point{X: 123, Y: 456}
	back := tr.Invert(tr.Apply(p))
	if !approx(back.X, p.X) || !approx(back.Y, p.Y) {
		t.Errorf("invert(apply(p)) = %+v, want %+v", back, p)
	}
	zero := Transform{}
	if zero.Invert(p) != p {
		t.Error("zero zoom invert should be a no-op")
	}
}
