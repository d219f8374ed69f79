package experiment

import (
	"fmt"
	"math"

	"github.com/san-kum/dsmath/internal/compiler"
	"github.com/san-kum/dsmath/internal/deriv"
	"github.com/san-kum/dsmath/internal/finitediff"
)

type Config struct {
	Function string
	Points   int
	Step     float64
	Order    int
}

// Comparison holds, for one abscissa, the exact derivatives of a function and
// their finite differences approximation, indexed by derivation order.
type Comparison struct {
	X      float64   `json:"x"`
	Exact  []float64 `json:"exact"`
	Approx []float64 `json:"approx"`
}

// Errors returns the absolute approximation error per order.
func (c Comparison) Errors() []float64 {
	errs := make([]float64, len(c.Exact))
	for i := range errs {
		errs[i] = math.Abs(c.Approx[i] - c.Exact[i])
	}
	return errs
}

// Experiment compares a reference function with its finite differences
// approximation.
type Experiment struct {
	cfg      Config
	function Function
	compiler *compiler.Compiler
	wrapped  *finitediff.Function
}

func New(functions *Registry, compilers *compiler.Registry, cfg Config, opts ...finitediff.Option) (*Experiment, error) {
	f, err := functions.GetFunction(cfg.Function)
	if err != nil {
		return nil, err
	}
	c, err := compilers.Compiler(1, cfg.Order)
	if err != nil {
		return nil, err
	}
	d, err := finitediff.New(cfg.Points, cfg.Step, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Order >= cfg.Points {
		return nil, fmt.Errorf("%w: order %d with %d points", finitediff.ErrOrderTooLarge, cfg.Order, cfg.Points)
	}

	return &Experiment{
		cfg:      cfg,
		function: f,
		compiler: c,
		wrapped:  d.Differentiate(f.Eval),
	}, nil
}

func (e *Experiment) Config() Config { return e.cfg }

func (e *Experiment) Function() Function { return e.function }

// At compares both evaluations at x.
func (e *Experiment) At(x float64) (Comparison, error) {
	t, err := deriv.Variable(e.compiler, 0, x)
	if err != nil {
		return Comparison{}, err
	}

	approx, err := e.wrapped.Derivative(t)
	if err != nil {
		return Comparison{}, err
	}
	exact := e.function.Exact(t)

	cmp := Comparison{
		X:      x,
		Exact:  make([]float64, e.cfg.Order+1),
		Approx: make([]float64, e.cfg.Order+1),
	}
	for n := 0; n <= e.cfg.Order; n++ {
		if cmp.Exact[n], err = exact.PartialDerivative(n); err != nil {
			return Comparison{}, err
		}
		if cmp.Approx[n], err = approx.PartialDerivative(n); err != nil {
			return Comparison{}, err
		}
	}
	return cmp, nil
}
