package deriv

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/dsmath/internal/compiler"
)

// ErrVariableIndex indicates a variable index outside [0, parameters).
var ErrVariableIndex = errors.New("deriv: variable index out of range")

// Structure is the value and partial derivatives of a function of some free
// parameters, stored in the flat layout of its compiler. Index 0 is the value.
type Structure struct {
	c    *compiler.Compiler
	data []float64
}

func alloc(c *compiler.Compiler) Structure {
	return Structure{c: c, data: make([]float64, c.Size())}
}

// Zero returns the structure with value and derivatives all zero.
func Zero(c *compiler.Compiler) Structure {
	return alloc(c)
}

// Constant returns a structure with the given value and zero derivatives.
func Constant(c *compiler.Compiler, value float64) Structure {
	d := alloc(c)
	d.data[0] = value
	return d
}

// Variable returns the structure of free parameter index at the given value:
// its first derivative with respect to itself is 1.
func Variable(c *compiler.Compiler, index int, value float64) (Structure, error) {
	if index < 0 || index >= c.Parameters() {
		return Structure{}, fmt.Errorf("%w: %d not in [0, %d)", ErrVariableIndex, index, c.Parameters())
	}
	d := Constant(c, value)
	if c.Order() > 0 {
		orders := make([]int, c.Parameters())
		orders[index] = 1
		i, err := c.PartialDerivativeIndex(orders...)
		if err != nil {
			return Structure{}, err
		}
		d.data[i] = 1
	}
	return d, nil
}

// New builds a structure from a full coefficient array, which is copied.
func New(c *compiler.Compiler, data []float64) (Structure, error) {
	if len(data) != c.Size() {
		return Structure{}, &compiler.DimensionError{
			What: "coefficients length", Got: len(data), Want: c.Size(), Wrapped: compiler.ErrDimensionMismatch,
		}
	}
	return Structure{c: c, data: slices.Clone(data)}, nil
}

// LinearCombination2 returns a1*d1 + a2*d2.
func LinearCombination2(a1 float64, d1 Structure, a2 float64, d2 Structure) (Structure, error) {
	if err := Compatible(d1, d2); err != nil {
		return Structure{}, err
	}
	r := alloc(d1.c)
	d1.c.LinearCombination2(a1, d1.data, a2, d2.data, r.data)
	return r, nil
}

// LinearCombination3 returns a1*d1 + a2*d2 + a3*d3.
func LinearCombination3(a1 float64, d1 Structure, a2 float64, d2 Structure, a3 float64, d3 Structure) (Structure, error) {
	if err := Compatible(d1, d2, d3); err != nil {
		return Structure{}, err
	}
	r := alloc(d1.c)
	d1.c.LinearCombination3(a1, d1.data, a2, d2.data, a3, d3.data, r.data)
	return r, nil
}

// LinearCombination4 returns a1*d1 + a2*d2 + a3*d3 + a4*d4.
func LinearCombination4(a1 float64, d1 Structure, a2 float64, d2 Structure,
	a3 float64, d3 Structure, a4 float64, d4 Structure) (Structure, error) {
	if err := Compatible(d1, d2, d3, d4); err != nil {
		return Structure{}, err
	}
	r := alloc(d1.c)
	d1.c.LinearCombination4(a1, d1.data, a2, d2.data, a3, d3.data, a4, d4.data, r.data)
	return r, nil
}

// Compatible returns an error unless all structures share the same number of
// free parameters and derivation order.
func Compatible(first Structure, others ...Structure) error {
	for _, o := range others {
		if err := first.c.CheckCompatibility(o.c); err != nil {
			return err
		}
	}
	return nil
}

func (d Structure) mustMatch(o Structure) {
	if err := d.c.CheckCompatibility(o.c); err != nil {
		panic(err)
	}
}

// Compiler returns the layout compiler of the structure.
func (d Structure) Compiler() *compiler.Compiler { return d.c }

// FreeParameters returns the number of free parameters.
func (d Structure) FreeParameters() int { return d.c.Parameters() }

// Order returns the derivation order.
func (d Structure) Order() int { return d.c.Order() }

// Value returns the value of the function.
func (d Structure) Value() float64 { return d.data[0] }

// PartialDerivative returns one partial derivative, orders having one entry
// per free parameter.
func (d Structure) PartialDerivative(orders ...int) (float64, error) {
	return d.c.PartialDerivative(d.data, orders...)
}

// AllDerivatives returns a copy of the flat coefficient array.
func (d Structure) AllDerivatives() []float64 {
	return slices.Clone(d.data)
}

// Exponent returns the unbiased binary exponent of the value, as in IEEE 754
// getExponent: -1023 for zero and subnormals, 1024 for infinities and NaN.
func (d Structure) Exponent() int {
	return exponent(d.data[0])
}

func exponent(x float64) int {
	return int((math.Float64bits(x)>>52)&0x7ff) - 1023
}

// ZeroLike returns the zero structure sharing d's compiler.
func (d Structure) ZeroLike() Structure { return Zero(d.c) }

// OneLike returns the constant 1 sharing d's compiler.
func (d Structure) OneLike() Structure { return Constant(d.c, 1) }

// Taylor evaluates the truncated Taylor expansion at the given offsets from
// the expansion point, one per free parameter.
func (d Structure) Taylor(deltas ...float64) (float64, error) {
	return d.c.Taylor(d.data, deltas...)
}

// Equal reports whether both structures have compatible compilers and
// identical coefficients.
func (d Structure) Equal(o Structure) bool {
	if d.c == nil || o.c == nil {
		return d.c == o.c
	}
	return Compatible(d, o) == nil && slices.Equal(d.data, o.data)
}

func (d Structure) String() string {
	if d.c == nil {
		return "Structure{}"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Structure{p=%d, o=%d, [", d.c.Parameters(), d.c.Order())
	for i, v := range d.data {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteString("]}")
	return b.String()
}
