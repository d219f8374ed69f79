package experiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/dsmath/internal/compiler"
	"github.com/san-kum/dsmath/internal/deriv"
	"github.com/san-kum/dsmath/internal/finitediff"
)

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	names := r.ListFunctions()
	require.Equal(t, []string{"atan", "exp", "expsin", "gaussian", "log1p", "quintic", "runge", "sin"}, names)

	c := compiler.NewRegistry().MustCompiler(1, 0)
	for _, name := range names {
		f, err := r.GetFunction(name)
		require.NoError(t, err)
		require.Less(t, f.Domain[0], f.Domain[1], name)

		// plain and exact evaluations agree on the value
		x := 0.5*(f.Domain[0]+f.Domain[1]) + 0.1
		exact := f.Exact(deriv.Constant(c, x))
		require.InDelta(t, f.Eval(x), exact.Value(), 1e-14, name)
	}
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := NewRegistry().GetFunction("nonexistent")
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	square := Function{
		Name:   "square",
		Domain: [2]float64{-1, 1},
		Eval:   func(x float64) float64 { return x * x },
		Exact:  func(x deriv.Structure) deriv.Structure { return x.Mul(x) },
	}
	require.NoError(t, r.Register(square))
	require.ErrorIs(t, r.Register(square), ErrDuplicateFunction)

	f, err := r.GetFunction("square")
	require.NoError(t, err)
	require.Equal(t, 9.0, f.Eval(3))
}

func TestExperiment_At(t *testing.T) {
	e, err := New(NewRegistry(), compiler.NewRegistry(), Config{
		Function: "sin", Points: 5, Step: 0.01, Order: 2,
	})
	require.NoError(t, err)

	cmp, err := e.At(0.3)
	require.NoError(t, err)
	require.Len(t, cmp.Exact, 3)
	require.Len(t, cmp.Approx, 3)
	require.Equal(t, []float64{math.Sin(0.3), math.Cos(0.3), -math.Sin(0.3)}, cmp.Exact)

	for n, e := range cmp.Errors() {
		require.Less(t, e, 1e-8, "order %d", n)
	}
}

func TestExperiment_Validation(t *testing.T) {
	functions := NewRegistry()
	compilers := compiler.NewRegistry()

	_, err := New(functions, compilers, Config{Function: "nope", Points: 5, Step: 0.1, Order: 1})
	require.ErrorIs(t, err, ErrUnknownFunction)

	_, err = New(functions, compilers, Config{Function: "sin", Points: 1, Step: 0.1, Order: 0})
	require.ErrorIs(t, err, finitediff.ErrTooFewPoints)

	_, err = New(functions, compilers, Config{Function: "sin", Points: 3, Step: 0, Order: 1})
	require.ErrorIs(t, err, finitediff.ErrNonPositiveStep)

	_, err = New(functions, compilers, Config{Function: "sin", Points: 3, Step: 0.1, Order: 3})
	require.ErrorIs(t, err, finitediff.ErrOrderTooLarge)

	_, err = New(functions, compilers, Config{Function: "sin", Points: 3, Step: 0.1, Order: -1})
	require.ErrorIs(t, err, compiler.ErrNegativeDimension)
}
