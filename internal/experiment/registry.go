package experiment

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/dsmath/internal/deriv"
)

var (
	ErrUnknownFunction   = errors.New("experiment: unknown function")
	ErrDuplicateFunction = errors.New("experiment: function already registered")
)

// Function is a univariate reference function known both as a plain
// function and as an exact derivative structure evaluation.
type Function struct {
	Name        string
	Description string
	// Domain is the default abscissa range for sweeps.
	Domain [2]float64
	Eval   func(x float64) float64
	Exact  func(x deriv.Structure) deriv.Structure
}

type Registry struct {
	functions map[string]Function
}

func NewRegistry() *Registry {
	r := &Registry{functions: make(map[string]Function)}

	for _, f := range []Function{
		{
			Name:        "quintic",
			Description: "(x-1)(x-0.5)x(x+0.5)(x+1)",
			Domain:      [2]float64{-10, 10},
			Eval: func(x float64) float64 {
				return (x - 1) * (x - 0.5) * x * (x + 0.5) * (x + 1)
			},
			Exact: func(x deriv.Structure) deriv.Structure {
				return x.SubScalar(1).Mul(x.SubScalar(0.5)).Mul(x).Mul(x.AddScalar(0.5)).Mul(x.AddScalar(1))
			},
		},
		{
			Name:        "sin",
			Description: "sin(x)",
			Domain:      [2]float64{-math.Pi, math.Pi},
			Eval:        math.Sin,
			Exact:       deriv.Structure.Sin,
		},
		{
			Name:        "gaussian",
			Description: "normal density with mean 1 and deviation 2",
			Domain:      [2]float64{-10, 10},
			Eval: func(x float64) float64 {
				return gaussianNorm * math.Exp(-(x-1)*(x-1)/8)
			},
			Exact: func(x deriv.Structure) deriv.Structure {
				u := x.SubScalar(1)
				return u.Mul(u).DivScalar(-8).Exp().MulScalar(gaussianNorm)
			},
		},
		{
			Name:        "exp",
			Description: "e^x",
			Domain:      [2]float64{-5, 5},
			Eval:        math.Exp,
			Exact:       deriv.Structure.Exp,
		},
		{
			Name:        "log1p",
			Description: "log(1+x)",
			Domain:      [2]float64{-0.5, 5},
			Eval:        math.Log1p,
			Exact:       deriv.Structure.Log1p,
		},
		{
			Name:        "atan",
			Description: "arc tangent",
			Domain:      [2]float64{-5, 5},
			Eval:        math.Atan,
			Exact:       deriv.Structure.Atan,
		},
		{
			Name:        "runge",
			Description: "1/(1+25x^2)",
			Domain:      [2]float64{-1, 1},
			Eval: func(x float64) float64 {
				return 1 / (1 + 25*x*x)
			},
			Exact: func(x deriv.Structure) deriv.Structure {
				return x.Mul(x).MulScalar(25).AddScalar(1).Reciprocal()
			},
		},
		{
			Name:        "expsin",
			Description: "e^sin(x)",
			Domain:      [2]float64{-math.Pi, math.Pi},
			Eval: func(x float64) float64 {
				return math.Exp(math.Sin(x))
			},
			Exact: func(x deriv.Structure) deriv.Structure {
				return x.Sin().Exp()
			},
		},
	} {
		r.functions[f.Name] = f
	}

	return r
}

var gaussianNorm = 1 / (2 * math.Sqrt(2*math.Pi))

// Register adds a function under its name.
func (r *Registry) Register(f Function) error {
	if _, ok := r.functions[f.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, f.Name)
	}
	r.functions[f.Name] = f
	return nil
}

func (r *Registry) GetFunction(name string) (Function, error) {
	f, ok := r.functions[name]
	if !ok {
		return Function{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return f, nil
}

// ListFunctions returns the registered names, sorted.
func (r *Registry) ListFunctions() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
