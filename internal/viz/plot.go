package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dsmath/internal/experiment"
)

// errorFloor keeps exact zeros plottable on a log scale.
const errorFloor = 1e-300

// Log10Errors extracts log10 of the absolute error of one derivation order
// along samples.
func Log10Errors(samples []experiment.Comparison, order int) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = math.Log10(math.Max(s.Errors()[order], errorFloor))
	}
	return out
}

// PlotErrors draws the log10 error of one derivation order along a sweep.
func PlotErrors(samples []experiment.Comparison, order, width, height int) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("no samples to plot")
	}
	if order < 0 || order >= len(samples[0].Exact) {
		return "", fmt.Errorf("order %d not in [0, %d]", order, len(samples[0].Exact)-1)
	}

	caption := fmt.Sprintf("log10 |error| of derivative %d, x in [%g, %g]",
		order, samples[0].X, samples[len(samples)-1].X)
	return asciigraph.Plot(Log10Errors(samples, order),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	), nil
}

// PlotSeries draws exact and approximated values of one derivation order.
func PlotSeries(samples []experiment.Comparison, order, width, height int) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("no samples to plot")
	}
	if order < 0 || order >= len(samples[0].Exact) {
		return "", fmt.Errorf("order %d not in [0, %d]", order, len(samples[0].Exact)-1)
	}

	exact := make([]float64, len(samples))
	approx := make([]float64, len(samples))
	for i, s := range samples {
		exact[i] = s.Exact[order]
		approx[i] = s.Approx[order]
	}
	return asciigraph.PlotMany([][]float64{exact, approx},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.Caption(fmt.Sprintf("derivative %d: exact (green) and finite differences (red)", order)),
	), nil
}
