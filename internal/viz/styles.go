package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	// Subtle muted text
	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	BorderColor = lipgloss.Color("#444466")

	// Error magnitudes
	ErrorLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	ErrorMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	ErrorHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// ErrorStyle picks a color for an absolute error.
func ErrorStyle(err float64) lipgloss.Style {
	switch {
	case err < 1e-8:
		return ErrorLow
	case err < 1e-3:
		return ErrorMid
	default:
		return ErrorHigh
	}
}

// Sparkline renders a mini sparkline from values, sampled to fit width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		result.WriteRune(chars[idx])
	}
	return result.String()
}
