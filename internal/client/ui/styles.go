package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/atinyakov/cloudtty/internal/client/prompt"
	"github.com/atinyakov/cloudtty/internal/client/terminal"
)

// Styles is the chrome of the application, derived from the terminal theme.
type Styles struct {
	Header   lipgloss.Style
	Heading  lipgloss.Style
	Text     lipgloss.Style
	Button   lipgloss.Style
	Muted    lipgloss.Style
	Menu     lipgloss.Style
	MenuItem lipgloss.Style
	Dialog   lipgloss.Style
	Notice   lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Prompt   prompt.Styles
}

// NewStyles builds the styles for th.
func NewStyles(th terminal.Theme) Styles {
	fg := lipgloss.Color(th.Foreground)
	bg := lipgloss.Color(th.Background)
	accent := lipgloss.Color(th.Blue)
	muted := lipgloss.Color(th.BrightBlack)
	danger := lipgloss.Color(th.BrightRed)

	dialog := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(muted).
		Foreground(fg).
		Padding(1, 3)

	return Styles{
		Header:   lipgloss.NewStyle().Foreground(lipgloss.Color(th.BrightWhite)).Background(accent).Bold(true).Padding(0, 1),
		Heading:  lipgloss.NewStyle().Foreground(fg).Bold(true),
		Text:     lipgloss.NewStyle().Foreground(fg),
		Button:   lipgloss.NewStyle().Foreground(lipgloss.Color(th.BrightWhite)).Background(accent).Padding(0, 2),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Menu:     dialog.Padding(0, 1),
		MenuItem: lipgloss.NewStyle().Foreground(fg),
		Dialog:   dialog,
		Notice:   dialog.BorderForeground(danger),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color(th.Cyan)),
		Error:    lipgloss.NewStyle().Foreground(danger),
		Help:     lipgloss.NewStyle().Foreground(muted),
		Prompt: prompt.Styles{
			Box:   dialog.Background(bg),
			Title: lipgloss.NewStyle().Foreground(fg).Bold(true).MarginBottom(1),
			Label: lipgloss.NewStyle().Foreground(fg),
			Error: lipgloss.NewStyle().Foreground(danger),
			Help:  lipgloss.NewStyle().Foreground(muted),
		},
	}
}
