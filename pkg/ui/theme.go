package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Theme holds the colors and base styles of the TUI.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor

	NotStarted lipgloss.AdaptiveColor
	InProgress lipgloss.AdaptiveColor
	Completed  lipgloss.AdaptiveColor
	Blocked    lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
	Dimmed   lipgloss.Style
}

// DefaultTheme is a Dracula-like palette that degrades to readable colors on
// light terminals.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#8BE9FD"},
		Muted:     lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C80"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#444444", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"},
		Text:      lipgloss.AdaptiveColor{Light: "#000000", Dark: "#f8f8f2"},

		NotStarted: lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"},
		InProgress: lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#8BE9FD"},
		Completed:  lipgloss.AdaptiveColor{Light: "#008700", Dark: "#50FA7B"},
		Blocked:    lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5555"},
	}
	t.Base = r.NewStyle().Foreground(t.Text)
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E4DCF7", Dark: "#44475A"}).
		Bold(true)
	t.Dimmed = r.NewStyle().Foreground(t.Muted).Faint(true)
	return t
}

// StatusColor returns the color of a status.
func (t Theme) StatusColor(s model.Status) lipgloss.AdaptiveColor {
	switch s {
	case model.StatusInProgress:
		return t.InProgress
	case model.StatusCompleted:
		return t.Completed
	case model.StatusBlocked:
		return t.Blocked
	default:
		return t.NotStarted
	}
}

// StatusIcon returns a one-cell glyph for a status.
func StatusIcon(s model.Status) string {
	switch s {
	case model.StatusInProgress:
		return "◐"
	case model.StatusCompleted:
		return "●"
	case model.StatusBlocked:
		return "✖"
	default:
		return "○"
	}
}

// TypeIcon returns the glyph and color of a node type.
func (t Theme) TypeIcon(nt model.NodeType) (string, lipgloss.AdaptiveColor) {
	switch nt {
	case model.TypeRoot:
		return "◆", t.Primary
	case model.TypePhase:
		return "▣", t.Highlight
	case model.TypeMilestone:
		return "⚑", t.Completed
	default:
		return "□", t.Subtext
	}
}
