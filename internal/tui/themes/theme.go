// Package themes holds the color schemes of the terminal UI.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Selected      lipgloss.Style
	Highlighted   lipgloss.Style
	NewRow        lipgloss.Style
	TableHeader   lipgloss.Style
	Tab           lipgloss.Style
	TabActive     lipgloss.Style
	Card          lipgloss.Style
	CardValue     lipgloss.Style
	RoundedBox    lipgloss.Style
	ProgressFull  lipgloss.Style
	ProgressEmpty lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusPending lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
}

// palette is the handful of colors a theme is derived from.
type palette struct {
	primary    string
	onPrimary  string
	success    string
	warning    string
	errorColor string
	info       string
	foreground string
	subtle     string
	surface    string
	border     string
	muted      string
	newRow     string
	onNewRow   string
}

func build(p palette) Theme {
	fg := lipgloss.Color(p.foreground)
	border := lipgloss.Color(p.border)

	return Theme{
		Primary: lipgloss.Color(p.primary),
		Muted:   lipgloss.Color(p.muted),
		Border:  border,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.subtle)),
		Normal: lipgloss.NewStyle().
			Foreground(fg),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(p.primary)).
			Foreground(lipgloss.Color(p.onPrimary)).
			Bold(true),
		Highlighted: lipgloss.NewStyle().
			Background(lipgloss.Color(p.surface)).
			Foreground(fg),
		NewRow: lipgloss.NewStyle().
			Background(lipgloss.Color(p.newRow)).
			Foreground(lipgloss.Color(p.onNewRow)).
			Bold(true),
		TableHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg).
			Background(lipgloss.Color(p.surface)),

		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.muted)).
			Padding(0, 2),
		TabActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.onPrimary)).
			Background(lipgloss.Color(p.primary)).
			Bold(true).
			Padding(0, 2),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Width(28),
		CardValue: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.primary)),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2),
		ProgressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.primary)),
		ProgressEmpty: lipgloss.NewStyle().
			Foreground(border),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.success)).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.warning)).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.errorColor)).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.info)).
			Bold(true),
		StatusPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.muted)).
			Italic(true),
	}
}

// Default is the default theme.
var Default = build(palette{
	primary:    "#2563eb",
	onPrimary:  "#fafafa",
	success:    "#10b981",
	warning:    "#f59e0b",
	errorColor: "#ef4444",
	info:       "#3b82f6",
	foreground: "#fafafa",
	subtle:     "#a3a3a3",
	surface:    "#262626",
	border:     "#404040",
	muted:      "#737373",
	newRow:     "#fef08a",
	onNewRow:   "#1a1a1a",
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(palette{
	primary:    "#89b4fa",
	onPrimary:  "#1e1e2e",
	success:    "#a6e3a1",
	warning:    "#f9e2af",
	errorColor: "#f38ba8",
	info:       "#89dceb",
	foreground: "#cdd6f4",
	subtle:     "#a6adc8",
	surface:    "#313244",
	border:     "#45475a",
	muted:      "#6c7086",
	newRow:     "#f9e2af",
	onNewRow:   "#1e1e2e",
})

// Names lists the themes GetTheme knows.
var Names = []string{"default", "catppuccin-mocha"}

// GetTheme returns a theme by name, falling back to Default.
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
