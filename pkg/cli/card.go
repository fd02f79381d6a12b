package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Warn    lipgloss.Color // Caveats
	Dim     lipgloss.Color // Dimmed/help text color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Note   lipgloss.Style
	Help   lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Foreground(t.Dim),
		Value:  lipgloss.NewStyle().Bold(true),
		Note:   lipgloss.NewStyle().Foreground(t.Warn),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

// Field is one label/value line of a Card.
type Field struct {
	Label string
	Value string
}

// Card renders a bordered block with a title, aligned fields, and optional
// wrapped notes.
type Card struct {
	Styles Styles
	Title  string
	Fields []Field
	Body   string // wrapped paragraph below the fields
	Note   string // highlighted paragraph below the body
	Help   string // dim line below the card
}

// Render renders the card at the given total width.
func (c Card) Render(width int) string {
	if width < 20 {
		width = 20
	}
	inner := width - 4 // border + padding

	labelWidth := 0
	for _, f := range c.Fields {
		labelWidth = max(labelWidth, lipgloss.Width(f.Label))
	}

	lines := []string{c.Styles.Title.Render(c.Title), ""}
	for _, f := range c.Fields {
		label := f.Label + strings.Repeat(" ", labelWidth-lipgloss.Width(f.Label))
		lines = append(lines, c.Styles.Label.Render(label)+"  "+c.Styles.Value.Render(f.Value))
	}
	if c.Body != "" {
		lines = append(lines, "", lipgloss.NewStyle().Width(inner).Render(c.Body))
	}
	if c.Note != "" {
		lines = append(lines, "", c.Styles.Note.Width(inner).Render(c.Note))
	}

	out := c.Styles.Border.Width(inner + 2).Render(strings.Join(lines, "\n"))
	if c.Help != "" {
		out += "\n" + c.Styles.Help.Render(c.Help)
	}
	return out
}
