package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	graphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("49")).
			Padding(1, 0)

	activeParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	socHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	socMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	socLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// SOCBar renders the charge bar, colored by how much is left.
func SOCBar(soc float64, width int) string {
	if soc < 0 {
		soc = 0
	}
	if soc > 1 {
		soc = 1
	}
	filled := int(soc * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	switch {
	case soc > 0.5:
		return socHigh.Render(bar)
	case soc > 0.2:
		return socMid.Render(bar)
	default:
		return socLow.Render(bar)
	}
}
