// Package metrics exposes prometheus collectors for the compiler registry,
// the finite differences sampling and the error sweeps.
package metrics

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/dsmath/internal/compiler"
)

const namespace = "dsmath"

type Collector struct {
	reg *prometheus.Registry

	compilersBuilt prometheus.Counter
	compilerSize   prometheus.Histogram
	samples        prometheus.Counter
	sweeps         *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	maxError       *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		compilersBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "built_total",
			Help:      "Number of coefficient compilers built.",
		}),
		compilerSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "size",
			Help:      "Number of coefficients of the built compilers.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "finitediff",
			Name:      "samples_total",
			Help:      "Number of function samples taken by finite differences.",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Number of completed error sweeps.",
		}, []string{"function"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Wall time of error sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		maxError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "max_error",
			Help:      "Largest absolute error of the last sweep per derivation order.",
		}, []string{"function", "order"}),
	}

	c.reg.MustRegister(c.compilersBuilt, c.compilerSize, c.samples, c.sweeps, c.sweepDuration, c.maxError)
	return c
}

// Registry returns the prometheus registry holding every collector.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// BuildHook returns a compiler registry hook counting builds.
func (c *Collector) BuildHook() compiler.BuildHook {
	return func(parameters, order, size int) {
		c.compilersBuilt.Inc()
		c.compilerSize.Observe(float64(size))
	}
}

// OnSample implements finitediff.Observer.
func (c *Collector) OnSample(float64) { c.samples.Inc() }

// ObserveSweep records a finished sweep of function.
func (c *Collector) ObserveSweep(function string, elapsed time.Duration, maxError []float64) {
	c.sweeps.WithLabelValues(function).Inc()
	c.sweepDuration.Observe(elapsed.Seconds())
	for order, v := range maxError {
		c.maxError.WithLabelValues(function, strconv.Itoa(order)).Set(v)
	}
}

// Dump writes one line per sample of every gathered metric family, sorted
// by name.
func (c *Collector) Dump(w io.Writer) error {
	families, err := c.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetGauge().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines,
					fmt.Sprintf("%s_count %d", name, h.GetSampleCount()),
					fmt.Sprintf("%s_sum %g", name, h.GetSampleSum()))
			}
		}
	}
	slices.Sort(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
