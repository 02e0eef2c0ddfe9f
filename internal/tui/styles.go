package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/btscan/internal/ui"
	"github.com/muurk/btscan/internal/version"
)

// Application branding constants
const (
	AppName   = "BTSCAN"
	GitHubURL = "github.com/muurk/btscan"
)

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72
	DefaultHeight    = 24
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor).
			Italic(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor)

	// SelectedRowStyle highlights the device under the cursor
	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(ui.SuccessColor).
				Bold(true)

	RowStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor)

	DetailStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor)

	PairedStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor)

	// ButtonStyle is the scan toggle, drawn as a button
	ButtonStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor).
			Background(ui.PrimaryColor).
			Bold(true).
			Padding(0, 2)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor).
			Bold(true)

	ErrorBannerStyle = lipgloss.NewStyle().
				Foreground(ui.ErrorColor).
				Bold(true).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ui.ErrorColor)

	WarningBannerStyle = lipgloss.NewStyle().
				Foreground(ui.WarningColor).
				Bold(true)

	// PromptStyle frames a consent question
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ui.WarningColor).
			Padding(1, 2)
)

// BuildHeaderContent creates header content with app name and GitHub URL
func BuildHeaderContent(backend string) string {
	left := lipgloss.NewStyle().
		Foreground(ui.TextColor).
		Bold(true).
		Render(AppName + " " + version.Version)

	right := lipgloss.NewStyle().
		Foreground(ui.MutedColor).
		Render(GitHubURL + "  •  backend: " + backend)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps a screen in the full-terminal frame:
// header, content and a footer with the help line.
func RenderApplicationContainer(header, content, footerText string, width, height int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	styledHeader := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(ui.PrimaryColor).
		Width(width-4).
		Padding(0, 1).
		Render(header)

	styledFooter := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(ui.PrimaryColor).
		Width(width-4).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Foreground(ui.MutedColor).Render(footerText))

	styledContent := lipgloss.NewStyle().
		Width(width - 4).
		Render(content)

	inner := lipgloss.JoinVertical(lipgloss.Left, styledHeader, styledContent, styledFooter)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ui.PrimaryColor).
		Width(width - 2).
		Height(height - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, bordered)
}
