package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

func TestContextFor(t *testing.T) {
	tests := map[model.PresentationMode]Context{
		model.ModeGraph: ContextGraph,
		model.ModeTree:  ContextTree,
		model.ModeSplit: ContextSplit,
		"":              ContextSplit,
	}
	for mode, want := range tests {
		if got := ContextFor(mode); got != want {
			t.Errorf("ContextFor(%q) = %v, want %v", mode, got, want)
		}
	}
}

func TestGetContextHelpFallsBack(t *testing.T) {
	if got := GetContextHelp(Context(99)); got != contextHelpGeneric {
		t.Error("unknown context should get the generic help")
	}
	if !strings.Contains(GetContextHelp(ContextGraph), "Nudge") {
		t.Error("graph help should mention nudging")
	}
}

func TestRenderContextHelp(t *testing.T) {
	theme := DefaultTheme(lipgloss.NewRenderer(nil))
	out := RenderContextHelp(ContextTree, theme, 100, 40)
	for _, want := range []string{"Quick Reference", "Tree View", "Esc to close"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q", want)
		}
	}
	// Narrow terminals still get a usable box.
	if narrow := RenderContextHelp(ContextSearch, theme, 10, 10); narrow == "" {
		t.Error("narrow help should render")
	}
}

func TestThemeStatusAndTypeIcons(t *testing.T) {
	theme := DefaultTheme(lipgloss.NewRenderer(nil))
	if theme.StatusColor(model.StatusBlocked) != theme.Blocked {
		t.Error("blocked should use the blocked color")
	}
	if theme.StatusColor("mystery") != theme.NotStarted {
		t.Error("unknown status should fall back to not started")
	}
	icons := map[model.Status]string{
		model.StatusNotStarted: "○",
		model.StatusInProgress: "◐",
		model.StatusCompleted:  "●",
		model.StatusBlocked:    "✖",
	}
	for s, want := range icons {
		if got := StatusIcon(s); got != want {
			t.Errorf("StatusIcon(%s) = %q, want %q", s, got, want)
		}
	}
	if icon, _ := theme.TypeIcon(model.TypeMilestone); icon != "⚑" {
		t.Errorf("milestone icon = %q", icon)
	}
}
