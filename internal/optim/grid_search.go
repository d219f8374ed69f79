// Package optim searches finite differences settings giving the smallest
// error over a sweep.
package optim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/sweep"
)

var ErrNoCandidate = errors.New("optim: no valid candidate")

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Candidate is one evaluated point of the grid.
type Candidate struct {
	Params map[string]float64
	// Error is the largest error of the searched order over the range.
	Error float64
}

// Search runs a sweep over r for every combination of the grid and
// returns the candidate with the smallest max error at the given
// derivation order, along with every evaluated candidate in grid order.
// Combinations that build rejects are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	r sweep.Range,
	workers, order int,
) (Candidate, []Candidate, error) {
	best := Candidate{Error: math.Inf(1)}
	var all []Candidate

	err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, r, workers, order, &best, &all)
	if err != nil {
		return Candidate{}, nil, err
	}
	if best.Params == nil {
		return Candidate{}, all, ErrNoCandidate
	}
	return best, all, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	r sweep.Range,
	workers, order int,
	best *Candidate,
	all *[]Candidate,
) error {
	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			return nil
		}
		if order > exp.Config().Order {
			return fmt.Errorf("optim: order %d above experiment order %d", order, exp.Config().Order)
		}

		result, err := sweep.Run(ctx, exp, r, workers)
		if err != nil {
			return err
		}

		c := Candidate{Params: maps.Clone(current), Error: result.MaxError[order]}
		*all = append(*all, c)
		if c.Error < best.Error {
			*best = c
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, r, workers, order, best, all); err != nil {
			return err
		}
	}
	return nil
}

// Geometric returns n values from lo to hi spaced by a constant ratio.
func Geometric(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	ratio := math.Pow(hi/lo, 1/float64(n-1))
	v := lo
	for i := range out {
		out[i] = v
		v *= ratio
	}
	out[n-1] = hi
	return out
}
