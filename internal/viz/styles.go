package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466"))

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	StatusRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusPaused = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	StatusManual = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff00ff"))

	StatusError = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)
)

// Metric renders a label: value pair.
func Metric(label, value string) string {
	return MetricLabel.Render(label+" ") + MetricValue.Render(value)
}

// ControlBar renders actuator commands as centered bars of the given width.
func ControlBar(u []float64, limit float64, width int) string {
	if limit <= 0 {
		limit = 1
	}
	half := max(1, width/2)
	parts := make([]string, 0, len(u))
	for _, v := range u {
		n := int(min(1, abs(v)/limit) * float64(half))
		var left, right string
		if v < 0 {
			left = strings.Repeat(" ", half-n) + strings.Repeat("█", n)
			right = strings.Repeat(" ", half)
		} else {
			left = strings.Repeat(" ", half)
			right = strings.Repeat("█", n) + strings.Repeat(" ", half-n)
		}
		parts = append(parts, "["+left+"|"+right+"]")
	}
	return strings.Join(parts, " ")
}

// Separator is a decorative rule.
func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(0, mid-3))
	right := strings.Repeat("─", max(0, width-mid-3))
	return Subtle.Render(left + " ◆ " + right)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
