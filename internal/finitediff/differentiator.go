// Package finitediff differentiates black-box univariate functions by
// sampling them on a regular grid and differentiating the interpolation
// polynomial with derivative structures.
package finitediff

import (
	"errors"
	"fmt"

	"github.com/san-kum/dsmath/internal/deriv"
)

var (
	ErrTooFewPoints      = errors.New("finitediff: at least two sample points are required")
	ErrNonPositiveStep   = errors.New("finitediff: step must be positive")
	ErrOrderTooLarge     = errors.New("finitediff: derivation order must be lower than the number of points")
	ErrInconsistentShape = errors.New("finitediff: sampled values change shape across the grid")
)

// Func is a univariate real function.
type Func func(x float64) float64

// VectorFunc is a univariate function with vector values.
type VectorFunc func(x float64) []float64

// MatrixFunc is a univariate function with matrix values.
type MatrixFunc func(x float64) [][]float64

// Observer is notified of every abscissa at which a wrapped function is
// sampled. A differentiator may be used from several goroutines at once,
// so observers must be safe for concurrent use.
type Observer interface {
	OnSample(x float64)
}

type Option func(*Differentiator)

// WithObserver registers an observer of the sampling grid.
func WithObserver(o Observer) Option {
	return func(d *Differentiator) { d.observers = append(d.observers, o) }
}

// Differentiator approximates derivatives of black-box functions by sampling
// them on a regular grid centered on the evaluation point and differentiating
// the interpolation polynomial. Accuracy depends entirely on the step: too
// large gives truncation error, too small gives cancellation.
type Differentiator struct {
	points    int
	step      float64
	observers []Observer
}

func New(points int, step float64, opts ...Option) (*Differentiator, error) {
	if points <= 1 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, points)
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrNonPositiveStep, step)
	}
	d := &Differentiator{points: points, step: step}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Points returns the number of sample points.
func (d *Differentiator) Points() int { return d.points }

// Step returns the distance between sample points.
func (d *Differentiator) Step() float64 { return d.step }

func (d *Differentiator) checkOrder(t deriv.Structure) error {
	if t.Order() >= d.points {
		return fmt.Errorf("%w: order %d with %d points", ErrOrderTooLarge, t.Order(), d.points)
	}
	return nil
}

// grid returns the sample abscissas centered on t0.
func (d *Differentiator) grid(t0 float64) []float64 {
	xs := make([]float64, d.points)
	for i := range xs {
		xs[i] = t0 + d.step*(float64(i)-0.5*float64(d.points-1))
		for _, o := range d.observers {
			o.OnSample(xs[i])
		}
	}
	return xs
}

// evaluate builds the Newton form of the polynomial through the samples y
// and evaluates it on t, so that the derivatives of t chain through.
func (d *Differentiator) evaluate(t deriv.Structure, y []float64) (deriv.Structure, error) {
	top := make([]float64, d.points)
	bottom := make([]float64, d.points)

	for i := range d.points {
		bottom[i] = y[i]
		for j := 1; j <= i; j++ {
			bottom[i-j] = (bottom[i-j+1] - bottom[i-j]) / (float64(j) * d.step)
		}
		top[i] = bottom[0]
	}

	coefficients := t.AllDerivatives()
	interpolation := t.ZeroLike()
	monomial := t.OneLike()
	for i := range d.points {
		interpolation = interpolation.Add(monomial.MulScalar(top[i]))

		// offset of t from the i-th sample, keeping the derivatives of t
		coefficients[0] = d.step * (0.5*float64(d.points-1) - float64(i))
		deltaX, err := deriv.New(t.Compiler(), coefficients)
		if err != nil {
			return deriv.Structure{}, err
		}
		monomial = monomial.Mul(deltaX)
	}

	return interpolation, nil
}

// Function is a Func together with its finite differences derivatives.
type Function struct {
	d  *Differentiator
	fn Func
}

// Differentiate wraps f.
func (d *Differentiator) Differentiate(f Func) *Function {
	return &Function{d: d, fn: f}
}

// Value evaluates the wrapped function.
func (f *Function) Value(x float64) float64 { return f.fn(x) }

// Derivative evaluates the function and its derivatives at t, up to the
// order of t.
func (f *Function) Derivative(t deriv.Structure) (deriv.Structure, error) {
	if err := f.d.checkOrder(t); err != nil {
		return deriv.Structure{}, err
	}

	xs := f.d.grid(t.Value())
	y := make([]float64, len(xs))
	for i, x := range xs {
		y[i] = f.fn(x)
	}
	return f.d.evaluate(t, y)
}

// VectorFunction is a VectorFunc together with its componentwise finite
// differences derivatives.
type VectorFunction struct {
	d  *Differentiator
	fn VectorFunc
}

// DifferentiateVector wraps f.
func (d *Differentiator) DifferentiateVector(f VectorFunc) *VectorFunction {
	return &VectorFunction{d: d, fn: f}
}

// Value evaluates the wrapped function.
func (f *VectorFunction) Value(x float64) []float64 { return f.fn(x) }

// Derivative evaluates every component and its derivatives at t.
func (f *VectorFunction) Derivative(t deriv.Structure) ([]deriv.Structure, error) {
	if err := f.d.checkOrder(t); err != nil {
		return nil, err
	}

	var y [][]float64
	for i, x := range f.d.grid(t.Value()) {
		v := f.fn(x)
		if i == 0 {
			y = make([][]float64, len(v))
			for j := range y {
				y[j] = make([]float64, f.d.points)
			}
		}
		if len(v) != len(y) {
			return nil, fmt.Errorf("%w: %d components at x=%g, %d before", ErrInconsistentShape, len(v), x, len(y))
		}
		for j, vj := range v {
			y[j][i] = vj
		}
	}

	out := make([]deriv.Structure, len(y))
	for j := range y {
		s, err := f.d.evaluate(t, y[j])
		if err != nil {
			return nil, err
		}
		out[j] = s
	}
	return out, nil
}

// MatrixFunction is a MatrixFunc together with its elementwise finite
// differences derivatives.
type MatrixFunction struct {
	d  *Differentiator
	fn MatrixFunc
}

// DifferentiateMatrix wraps f.
func (d *Differentiator) DifferentiateMatrix(f MatrixFunc) *MatrixFunction {
	return &MatrixFunction{d: d, fn: f}
}

// Value evaluates the wrapped function.
func (f *MatrixFunction) Value(x float64) [][]float64 { return f.fn(x) }

// Derivative evaluates every element and its derivatives at t. Rows may have
// different lengths but the shape must not change across the grid.
func (f *MatrixFunction) Derivative(t deriv.Structure) ([][]deriv.Structure, error) {
	if err := f.d.checkOrder(t); err != nil {
		return nil, err
	}

	var y [][][]float64
	for i, x := range f.d.grid(t.Value()) {
		v := f.fn(x)
		if i == 0 {
			y = make([][][]float64, len(v))
			for j := range v {
				y[j] = make([][]float64, len(v[j]))
				for k := range y[j] {
					y[j][k] = make([]float64, f.d.points)
				}
			}
		}
		if len(v) != len(y) {
			return nil, fmt.Errorf("%w: %d rows at x=%g, %d before", ErrInconsistentShape, len(v), x, len(y))
		}
		for j, row := range v {
			if len(row) != len(y[j]) {
				return nil, fmt.Errorf("%w: row %d has %d columns at x=%g, %d before",
					ErrInconsistentShape, j, len(row), x, len(y[j]))
			}
			for k, vjk := range row {
				y[j][k][i] = vjk
			}
		}
	}

	out := make([][]deriv.Structure, len(y))
	for j := range y {
		out[j] = make([]deriv.Structure, len(y[j]))
		for k := range y[j] {
			s, err := f.d.evaluate(t, y[j][k])
			if err != nil {
				return nil, err
			}
			out[j][k] = s
		}
	}
	return out, nil
}
