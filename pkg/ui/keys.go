package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the keyboard surface of the TUI.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Search      key.Binding
	StatusCycle key.Binding
	TypeCycle   key.Binding
	Create      key.Binding
	Advance     key.Binding
	PickStatus  key.Binding
	Delete      key.Binding
	Copy        key.Binding
	Panel       key.Binding
	Mode        key.Binding
	Fit         key.Binding
	Reset       key.Binding
	Plans       key.Binding
	NudgeLeft   key.Binding
	NudgeDown   key.Binding
	NudgeUp     key.Binding
	NudgeRight  key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "expand")),
		ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		Search:      key.NewBinding(key.WithKeys("/", "ctrl+f"), key.WithHelp("/", "search")),
		StatusCycle: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
		TypeCycle:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "type filter")),
		Create:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new child")),
		Advance:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "advance status")),
		PickStatus:  key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "pick status")),
		Delete:      key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Panel:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "panel")),
		Mode:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
		Fit:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit")),
		Reset:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset layout")),
		Plans:       key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "plans")),
		NudgeLeft:   key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "nudge left")),
		NudgeDown:   key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "nudge down")),
		NudgeUp:     key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "nudge up")),
		NudgeRight:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "nudge right")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is the footer line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Toggle, k.Search, k.Create, k.Advance, k.Panel, k.Mode, k.Plans, k.Help, k.Quit}
}
