package studio

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dgnsrekt/voicedeck/internal/nav"
)

// Theme is the studio color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme is the bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Success: lipgloss.Color("#5fd787"),
	Warning: lipgloss.Color("#ffd75f"),
	Error:   lipgloss.Color("#ff5f87"),
}

// Styles holds the styles derived from a Theme.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
	Panel   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Present lipgloss.Style
	Missing lipgloss.Style
	// Prompt is handed to the navigation engine.
	Prompt nav.Styles
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Border:  lipgloss.NewStyle().Foreground(t.Primary),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
		Panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Warning).Padding(0, 1),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
		Present: lipgloss.NewStyle().Foreground(t.Success),
		Missing: lipgloss.NewStyle().Foreground(t.Dim),
		Prompt: nav.Styles{
			Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
			Hint:  lipgloss.NewStyle().Foreground(t.Dim),
			Error: lipgloss.NewStyle().Foreground(t.Error),
			Echo:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		},
	}
}

// Table renders rows under headers with a rounded border.
func (s Styles) Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		}).
		String()
}
