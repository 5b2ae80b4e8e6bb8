package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/Veraticus/showroom/internal/tui/viewmodel"
)

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Navigation
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Home       key.Binding
	End        key.Binding
	NextScreen key.Binding
	PrevScreen key.Binding

	// Dashboard
	PrevYear    key.Binding
	NextYear    key.Binding
	CycleMetric key.Binding
	Customize   key.Binding
	ToggleCard  key.Binding

	// Upload
	Submit      key.Binding
	CycleKind   key.Binding
	ResetUpload key.Binding
	ViewDeal    key.Binding

	// Master sheet
	Download  key.Binding
	JumpToNew key.Binding

	// Application
	Refresh    key.Binding
	Back       key.Binding
	ToggleHelp key.Binding
	Logout     key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("←/h", "previous"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("→/l", "next"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+b"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+f"),
			key.WithHelp("PgDn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		NextScreen: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next page"),
		),
		PrevScreen: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous page"),
		),

		PrevYear: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous year"),
		),
		NextYear: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next year"),
		),
		CycleMetric: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "ranking metric"),
		),
		Customize: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "customize cards"),
		),
		ToggleCard: key.NewBinding(
			key.WithKeys(" ", "space", "x"),
			key.WithHelp("space", "show/hide card"),
		),

		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "upload"),
		),
		CycleKind: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "upload type"),
		),
		ResetUpload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "clear"),
		),
		ViewDeal: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "view in master sheet"),
		),

		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		JumpToNew: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "jump to new deal"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		ToggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "sign out"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the one-line footer for a page.
func (k KeyMap) ShortHelp(screen viewmodel.Screen) []key.Binding {
	switch screen {
	case viewmodel.ScreenDashboard:
		return []key.Binding{k.Left, k.Right, k.PrevYear, k.NextYear, k.CycleMetric, k.Customize, k.NextScreen, k.ToggleHelp}
	case viewmodel.ScreenUpload:
		return []key.Binding{k.Submit, k.CycleKind, k.ResetUpload, k.NextScreen}
	case viewmodel.ScreenMasterSheet:
		return []key.Binding{k.Left, k.Right, k.Download, k.JumpToNew, k.Refresh, k.NextScreen, k.ToggleHelp}
	default:
		return []key.Binding{k.Submit, k.ForceQuit}
	}
}

// FullHelp returns every binding of a page, grouped in columns.
func (k KeyMap) FullHelp(screen viewmodel.Screen) [][]key.Binding {
	app := []key.Binding{k.NextScreen, k.PrevScreen, k.Logout, k.ForceQuit}
	switch screen {
	case viewmodel.ScreenDashboard:
		return [][]key.Binding{
			{k.Left, k.Right, k.PrevYear, k.NextYear},
			{k.Up, k.Down, k.CycleMetric, k.Customize, k.ToggleCard},
			{k.Refresh, k.ToggleHelp, k.Quit},
			app,
		}
	case viewmodel.ScreenUpload:
		return [][]key.Binding{
			{k.Submit, k.CycleKind, k.ResetUpload, k.ViewDeal},
			app,
		}
	case viewmodel.ScreenMasterSheet:
		return [][]key.Binding{
			{k.Left, k.Right, k.Up, k.Down},
			{k.PageUp, k.PageDown, k.Home, k.End},
			{k.Download, k.JumpToNew, k.Refresh, k.ToggleHelp, k.Quit},
			app,
		}
	default:
		return [][]key.Binding{{k.Submit, k.ForceQuit}}
	}
}
