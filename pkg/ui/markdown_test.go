package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/export"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

func TestMarkdownRendererNodePanel(t *testing.T) {
	plan := &model.Plan{
		ID: "p",
		Nodes: []model.PlanNode{
			{ID: "r", NodeType: model.TypeRoot, Status: model.StatusInProgress, Title: "Roadmap"},
			{ID: "a", ParentID: "r", NodeType: model.TypeTask, Status: model.StatusBlocked, Title: "Ship API", Description: "Needs the **auth** review."},
		},
	}
	mr := NewMarkdownRendererWithTheme(60, DefaultTheme(lipgloss.DefaultRenderer()))
	out, err := mr.Render(export.NodeMarkdown(plan, "a"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Ship API", "auth", "task"} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q:\n%s", want, out)
		}
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("trailing newlines should be trimmed")
	}
}

func TestMarkdownRendererFallsBackToSource(t *testing.T) {
	mr := &MarkdownRenderer{width: 40}
	out, err := mr.Render("## Ship API")
	if err != nil || out != "## Ship API" {
		t.Errorf("expected raw markdown without a renderer, got %q, %v", out, err)
	}
}

func TestMarkdownRendererWidth(t *testing.T) {
	mr := NewMarkdownRenderer(40)
	if mr.useTheme || mr.theme != nil {
		t.Error("plain renderer should not carry a theme")
	}
	r := mr.renderer

	mr.SetWidth(40)
	if mr.renderer != r {
		t.Error("same width rebuilt the renderer")
	}
	for _, w := range []int{0, -3} {
		mr.SetWidth(w)
		if mr.width != 40 {
			t.Errorf("SetWidth(%d) changed width to %d", w, mr.width)
		}
	}
	mr.SetWidth(72)
	if mr.width != 72 {
		t.Errorf("width = %d, want 72", mr.width)
	}

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	mr.SetWidthWithTheme(0, theme)
	if mr.width != 72 || !mr.useTheme || mr.theme == nil {
		t.Errorf("SetWidthWithTheme(0) should keep the width and adopt the theme: %+v", mr)
	}
	if mr.IsDarkMode() != theme.Renderer.HasDarkBackground() {
		t.Error("dark mode should follow the theme renderer")
	}
}

func TestBuildStyleFromThemeUsesPalette(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	for _, dark := range []bool{true, false} {
		cfg := buildStyleFromTheme(theme, dark)
		if got, want := *cfg.Document.Color, extractHex(theme.Text, dark); got != want {
			t.Errorf("dark=%v document color %s, want %s", dark, got, want)
		}
		if got, want := *cfg.H1.Color, extractHex(theme.Primary, dark); got != want {
			t.Errorf("dark=%v h1 color %s, want %s", dark, got, want)
		}
		if cfg.Document.Margin != nil || cfg.H1.BackgroundColor != nil {
			t.Errorf("dark=%v: panel style should have no margin or h1 background", dark)
		}
	}
	if extractHex(theme.Text, true) == extractHex(theme.Text, false) {
		t.Error("default theme text should differ between light and dark")
	}
}
