package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// StatusPickerModel provides a quick status selection modal
type StatusPickerModel struct {
	nodeID        string
	statuses      []model.Status
	currentStatus model.Status
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewStatusPickerModel creates a picker for nodeID positioned on its
// current status.
func NewStatusPickerModel(nodeID string, current model.Status, theme Theme) StatusPickerModel {
	statuses := append([]model.Status(nil), model.KnownStatuses...)
	selectedIdx := 0
	for i, s := range statuses {
		if s == current {
			selectedIdx = i
			break
		}
	}
	return StatusPickerModel{
		nodeID:        nodeID,
		statuses:      statuses,
		currentStatus: current,
		selectedIndex: selectedIdx,
		theme:         theme,
	}
}

// NodeID returns the node the picker edits.
func (m *StatusPickerModel) NodeID() string { return m.nodeID }

// SetSize updates the picker dimensions
func (m *StatusPickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *StatusPickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *StatusPickerModel) MoveDown() {
	if m.selectedIndex < len(m.statuses)-1 {
		m.selectedIndex++
	}
}

// SelectedStatus returns the highlighted status.
func (m *StatusPickerModel) SelectedStatus() model.Status {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.statuses) {
		return m.statuses[m.selectedIndex]
	}
	return ""
}

// View renders the status picker overlay
func (m *StatusPickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}
	t := m.theme

	boxWidth := 32
	if m.width < 42 {
		boxWidth = m.width - 10
	}
	if boxWidth < 24 {
		boxWidth = 24
	}

	var lines []string
	titleStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	lines = append(lines, titleStyle.Render("Change Status"), "")

	for i, status := range m.statuses {
		isSelected := i == m.selectedIndex
		itemStyle := t.Renderer.NewStyle().Foreground(t.Text)
		prefix := "  "
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
			prefix = "> "
		}
		dot := t.Renderer.NewStyle().Foreground(t.StatusColor(status)).Render(StatusIcon(status))
		suffix := ""
		if status == m.currentStatus {
			suffix = " " + t.Renderer.NewStyle().Foreground(t.Secondary).Render("✓")
		}
		lines = append(lines, itemStyle.Render(prefix)+dot+" "+itemStyle.Render(formatStatusName(string(status)))+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: apply | esc: cancel"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// formatStatusName converts a status string to a display name
// Example: "in_progress" -> "In Progress"
func formatStatusName(status string) string {
	parts := strings.Split(status, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}
