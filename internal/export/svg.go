package export

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/viz"
)

var ErrNoSamples = errors.New("export: no samples")

// palette colors one path per derivation order, cycling when orders
// outnumber colors.
var palette = []string{"#00ff00", "#00d7ff", "#ffd700", "#ff8700", "#ff5fd7", "#af87ff", "#ff0000"}

// ErrorsToSVG draws log10 |error| against x for every derivation order of a
// sweep, one path per order.
func ErrorsToSVG(samples []experiment.Comparison, width, height int) (string, error) {
	if len(samples) < 2 {
		return "", ErrNoSamples
	}
	orders := len(samples[0].Exact)

	series := make([][]float64, orders)
	minX, maxX := samples[0].X, samples[len(samples)-1].X
	minY, maxY := math.Inf(1), math.Inf(-1)
	for order := range series {
		series[order] = viz.Log10Errors(samples, order)
		for _, y := range series[order] {
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for order, ys := range series {
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" data-order="%d" d="M`,
			palette[order%len(palette)], order))
		for i, y := range ys {
			px := (samples[i].X - minX) / rangeX * float64(width)
			py := float64(height) - (y-minY)/rangeY*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", px, py))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px, py))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString(fmt.Sprintf(`<text x="4" y="14" fill="#888888" font-family="monospace" font-size="12">log10 |error|, y in [%.1f, %.1f]</text>
</svg>`, minY, maxY))
	return sb.String(), nil
}
