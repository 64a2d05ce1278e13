package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/ledsync/internal/discovery"
)

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

// FilterValue filters by name or address
func (d deviceItem) FilterValue() string {
	return d.device.Name() + " " + d.device.Address()
}

func (d deviceItem) Title() string { return d.device.Name() }

func (d deviceItem) Description() string { return d.device.BaseURL() }

// deviceDelegate renders each device as a bordered card
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 4 } // Card height including borders

func (d deviceDelegate) Spacing() int { return 0 }

func (d deviceDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedItemStyle.Render("→ " + di.device.Name()))
	} else {
		content.WriteString("  " + di.device.Name())
	}
	content.WriteString("\n")
	content.WriteString(SubtitleStyle.Render(fmt.Sprintf("  %s  •  %s", di.device.Address(), di.device.BaseURL())))

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1).
		MarginLeft(2).
		Width(cardWidth(d.width))
	if selected {
		style = style.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, style.Render(content.String()))
}
