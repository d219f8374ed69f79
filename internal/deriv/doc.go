// Package deriv provides forward-mode automatic differentiation to arbitrary
// order over any number of free parameters.
//
// A [Structure] holds the value and every partial derivative, up to a total
// order, of some function of the free parameters, evaluated at one point.
// Arithmetic and elementary functions on structures apply the chain rule to
// all orders at once:
//
//	reg := compiler.NewRegistry()
//	c, _ := reg.Compiler(2, 3)          // 2 parameters, derivatives up to order 3
//	x, _ := deriv.Variable(c, 0, 1.5)
//	y, _ := deriv.Variable(c, 1, -0.5)
//	f := x.Mul(y).Sin().Add(deriv.Hypot(x, y))
//	dfdxdy, _ := f.PartialDerivative(1, 1)
//
// # Immutability
//
// Structures are values wrapping a coefficient slice that is never written
// after construction; they may be shared between goroutines freely. Every
// operation returns a new structure.
//
// # Errors
//
// Constructors and accessors return errors. Binary operations between
// structures built for different (parameters, order) pairs panic with a
// *compiler.DimensionError, like shape violations in gonum's mat package; use
// [Compatible] to check beforehand. Numeric edge cases such as division by
// zero are not errors: they propagate NaN and infinities.
package deriv
