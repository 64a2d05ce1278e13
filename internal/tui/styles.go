package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/ledsync/internal/version"
)

// Application branding constants
const (
	AppName   = "LEDSYNC"
	GitHubURL = "github.com/muurk/ledsync"
)

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum card width before capping
	defaultWidth     = 80
	defaultHeight    = 24
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
	BorderColor    = lipgloss.Color("#7D56F4") // Purple (same as primary)
	HighlightColor = lipgloss.Color("#43BF6D") // Green (same as secondary)
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			PaddingLeft(2)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(HighlightColor).
				Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			PaddingLeft(2)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true).
				PaddingLeft(2)

	warningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// Panel for the configuration of the selected device
	configPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(SubtleColor).
				Padding(0, 2).
				MarginLeft(2)

	renamePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(PrimaryColor).
				Padding(0, 1).
				MarginLeft(2)
)

// BuildHeaderContent creates header content with app name and project URL
func BuildHeaderContent() string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + version.Version)

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(GitHubURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps a screen's content in the full-screen
// frame: header, content, then a footer holding the help text, inside an
// outer border that fills the terminal.
func RenderApplicationContainer(content string, footerText string, terminalWidth int, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalHeight < 10 {
		terminalHeight = 10
	}

	styledHeader := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1).
		Render(BuildHeaderContent())

	styledFooter := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Foreground(SubtleColor).Render(footerText))

	styledContent := lipgloss.NewStyle().
		Width(terminalWidth - 4).
		Render(content)

	// Footer stays pinned to the bottom of the frame
	contentHeight := terminalHeight - 2 - lipgloss.Height(styledHeader) - lipgloss.Height(styledFooter)
	if contentHeight > lipgloss.Height(styledContent) {
		styledContent = lipgloss.PlaceVertical(contentHeight, lipgloss.Top, styledContent)
	}

	inner := lipgloss.JoinVertical(lipgloss.Left, styledHeader, styledContent, styledFooter)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// cardWidth bounds device cards to the terminal
func cardWidth(terminalWidth int) int {
	w := terminalWidth - 8
	if w < MinTerminalWidth-8 {
		w = MinTerminalWidth - 8
	}
	if w > MaxContentWidth-8 {
		w = MaxContentWidth - 8
	}
	return w
}
