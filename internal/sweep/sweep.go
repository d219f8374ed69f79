// Package sweep measures finite differences errors over a range of
// abscissas, sampling in parallel.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/dsmath/internal/experiment"
)

var ErrInvalidRange = errors.New("sweep: invalid range")

// Range is the half-open interval [From, To) walked with Step.
type Range struct {
	From float64 `yaml:"from" json:"from"`
	To   float64 `yaml:"to" json:"to"`
	Step float64 `yaml:"step" json:"step"`
}

// MaxAbscissas bounds the number of points a range may enumerate.
const MaxAbscissas = 10_000_000

func (r Range) Validate() error {
	switch {
	case math.IsNaN(r.From) || math.IsNaN(r.To) || math.IsNaN(r.Step):
		return fmt.Errorf("%w: NaN bound", ErrInvalidRange)
	case math.IsInf(r.From, 0) || math.IsInf(r.To, 0) || math.IsInf(r.Step, 0):
		return fmt.Errorf("%w: infinite bound", ErrInvalidRange)
	case r.Step <= 0:
		return fmt.Errorf("%w: step %g", ErrInvalidRange, r.Step)
	case r.To <= r.From:
		return fmt.Errorf("%w: [%g, %g)", ErrInvalidRange, r.From, r.To)
	}
	if n := math.Ceil((r.To - r.From) / r.Step); math.IsInf(n, 0) || n > MaxAbscissas {
		return fmt.Errorf("%w: [%g, %g) by %g exceeds %d points", ErrInvalidRange, r.From, r.To, r.Step, MaxAbscissas)
	}
	if r.From+r.Step == r.From {
		return fmt.Errorf("%w: step %g vanishes at %g", ErrInvalidRange, r.Step, r.From)
	}
	return nil
}

// Len is the number of abscissas of a valid range.
func (r Range) Len() int {
	n := int(math.Ceil((r.To - r.From) / r.Step))
	for n > 0 && r.From+float64(n-1)*r.Step >= r.To {
		n--
	}
	return n
}

// Abscissas lists the sampled points From + i*Step below To. The range
// must be valid.
func (r Range) Abscissas() []float64 {
	xs := make([]float64, r.Len())
	for i := range xs {
		xs[i] = r.From + float64(i)*r.Step
	}
	return xs
}

type Result struct {
	Samples []experiment.Comparison `json:"samples"`
	// MaxError is the largest absolute error per derivation order.
	MaxError []float64 `json:"max_error"`
}

// Run compares e at every abscissa of r, fanning out to at most workers
// goroutines working on contiguous chunks. Samples come back in abscissa
// order whatever the number of workers.
func Run(ctx context.Context, e *experiment.Experiment, r Range, workers int) (*Result, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	xs := r.Abscissas()
	n := len(xs)
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	samples := make([]experiment.Comparison, n)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					errs[w] = err
					return
				}
				cmp, err := e.At(xs[i])
				if err != nil {
					errs[w] = fmt.Errorf("sweep at x=%g: %w", xs[i], err)
					return
				}
				samples[i] = cmp
			}
		}(w, start, end)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := &Result{
		Samples:  samples,
		MaxError: make([]float64, e.Config().Order+1),
	}
	for _, s := range samples {
		for order, v := range s.Errors() {
			result.MaxError[order] = math.Max(result.MaxError[order], v)
		}
	}
	return result, nil
}
