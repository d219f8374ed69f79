package deriv

import (
	"math"

	"github.com/san-kum/dsmath/internal/compiler"
)

func (d Structure) clone() Structure {
	r := alloc(d.c)
	copy(r.data, d.data)
	return r
}

// AddScalar returns d + a.
func (d Structure) AddScalar(a float64) Structure {
	r := d.clone()
	r.data[0] += a
	return r
}

// Add returns d + o.
func (d Structure) Add(o Structure) Structure {
	d.mustMatch(o)
	r := alloc(d.c)
	d.c.Add(d.data, o.data, r.data)
	return r
}

// SubScalar returns d - a.
func (d Structure) SubScalar(a float64) Structure {
	return d.AddScalar(-a)
}

// Sub returns d - o.
func (d Structure) Sub(o Structure) Structure {
	d.mustMatch(o)
	r := alloc(d.c)
	d.c.Subtract(d.data, o.data, r.data)
	return r
}

// MulScalar returns d * a.
func (d Structure) MulScalar(a float64) Structure {
	r := alloc(d.c)
	for i, v := range d.data {
		r.data[i] = v * a
	}
	return r
}

// Mul returns d * o.
func (d Structure) Mul(o Structure) Structure {
	d.mustMatch(o)
	r := alloc(d.c)
	d.c.Multiply(d.data, o.data, r.data)
	return r
}

// DivScalar returns d / a.
func (d Structure) DivScalar(a float64) Structure {
	r := alloc(d.c)
	for i, v := range d.data {
		r.data[i] = v / a
	}
	return r
}

// Div returns d / o.
func (d Structure) Div(o Structure) Structure {
	d.mustMatch(o)
	r := alloc(d.c)
	d.c.Divide(d.data, o.data, r.data)
	return r
}

// RemScalar returns d mod a, truncated like math.Mod. Derivatives are
// unchanged.
func (d Structure) RemScalar(a float64) Structure {
	r := d.clone()
	r.data[0] = math.Mod(r.data[0], a)
	return r
}

// Rem returns the IEEE 754 remainder of d / o.
func (d Structure) Rem(o Structure) Structure {
	d.mustMatch(o)
	r := alloc(d.c)
	d.c.Remainder(d.data, o.data, r.data)
	return r
}

// Neg returns -d.
func (d Structure) Neg() Structure {
	r := alloc(d.c)
	for i, v := range d.data {
		r.data[i] = -v
	}
	return r
}

// Abs returns |d|. The sign bit of the value decides, so -0 is negated. A
// non-negative d is returned as is; structures are immutable so sharing its
// coefficients is safe.
func (d Structure) Abs() Structure {
	if math.Signbit(d.data[0]) {
		return d.Neg()
	}
	return d
}

// CopySign returns d with the sign of sign, using sign bits.
func (d Structure) CopySign(sign float64) Structure {
	if math.Signbit(d.data[0]) == math.Signbit(sign) {
		return d
	}
	return d.Neg()
}

// Ceil, Floor, Rint and Signum are piecewise constant: they return constant
// structures whose derivatives are all zero.

// Ceil returns the constant ceil(value).
func (d Structure) Ceil() Structure { return Constant(d.c, math.Ceil(d.data[0])) }

// Floor returns the constant floor(value).
func (d Structure) Floor() Structure { return Constant(d.c, math.Floor(d.data[0])) }

// Rint returns the constant value rounded half to even.
func (d Structure) Rint() Structure { return Constant(d.c, math.RoundToEven(d.data[0])) }

// Signum returns the constant sign of the value (-1, 0 or 1, NaN for NaN).
func (d Structure) Signum() Structure {
	v := d.data[0]
	switch {
	case v > 0:
		v = 1
	case v < 0:
		v = -1
	}
	return Constant(d.c, v)
}

// Round returns the value rounded to the nearest integer, halves rounding up.
func (d Structure) Round() int64 {
	return int64(math.Floor(d.data[0] + 0.5))
}

// Scalb returns d * 2^n, exactly.
func (d Structure) Scalb(n int) Structure {
	r := alloc(d.c)
	for i, v := range d.data {
		r.data[i] = math.Ldexp(v, n)
	}
	return r
}

// ToDegrees converts radians to degrees.
func (d Structure) ToDegrees() Structure {
	return d.MulScalar(180 / math.Pi)
}

// ToRadians converts degrees to radians.
func (d Structure) ToRadians() Structure {
	return d.MulScalar(math.Pi / 180)
}

// Reciprocal returns 1 / d.
func (d Structure) Reciprocal() Structure {
	r := alloc(d.c)
	d.c.PowInt(d.data, -1, r.data)
	return r
}

// Sqrt returns the square root of d.
func (d Structure) Sqrt() Structure { return d.RootN(2) }

// Cbrt returns the cubic root of d.
func (d Structure) Cbrt() Structure { return d.RootN(3) }

// RootN returns the n-th root of d.
func (d Structure) RootN(n int) Structure {
	r := alloc(d.c)
	d.c.RootN(d.data, n, r.data)
	return r
}

// Pow returns d^p.
func (d Structure) Pow(p float64) Structure {
	r := alloc(d.c)
	d.c.Pow(d.data, p, r.data)
	return r
}

// PowInt returns d^n.
func (d Structure) PowInt(n int) Structure {
	r := alloc(d.c)
	d.c.PowInt(d.data, n, r.data)
	return r
}

// PowStructure returns d^e computed as exp(e log d). A non-positive value of
// d yields NaN coefficients, as the logarithm does.
func (d Structure) PowStructure(e Structure) Structure {
	d.mustMatch(e)
	r := alloc(d.c)
	d.c.PowStructure(d.data, e.data, r.data)
	return r
}

// PowBase returns a^x.
func PowBase(a float64, x Structure) Structure {
	r := alloc(x.c)
	x.c.PowBase(a, x.data, r.data)
	return r
}

// Compose applies a univariate function given its value and derivatives at
// d.Value(): f[k] is the k-th derivative, len(f) must be Order()+1.
func (d Structure) Compose(f ...float64) (Structure, error) {
	if len(f) != d.c.Order()+1 {
		return Structure{}, &compiler.DimensionError{
			What: "function derivatives", Got: len(f), Want: d.c.Order() + 1, Wrapped: compiler.ErrDimensionMismatch,
		}
	}
	r := alloc(d.c)
	d.c.Compose(d.data, f, r.data)
	return r, nil
}

// Hypot returns sqrt(x^2 + y^2) avoiding intermediate overflow and underflow.
func Hypot(x, y Structure) Structure {
	x.mustMatch(y)

	switch {
	case math.IsInf(x.data[0], 0) || math.IsInf(y.data[0], 0):
		return Constant(x.c, math.Inf(1))
	case math.IsNaN(x.data[0]) || math.IsNaN(y.data[0]):
		return Constant(x.c, math.NaN())
	}

	expX := x.Exponent()
	expY := y.Exponent()
	switch {
	case expX > expY+27:
		// y is negligible with respect to x
		return x.Abs()
	case expY > expX+27:
		return y.Abs()
	}

	// intermediate scale avoiding both overflow and underflow
	middleExp := (expX + expY) / 2
	scaledX := x.Scalb(-middleExp)
	scaledY := y.Scalb(-middleExp)
	scaledH := scaledX.Mul(scaledX).Add(scaledY.Mul(scaledY)).Sqrt()
	return scaledH.Scalb(middleExp)
}

// Atan2 returns the two-argument arc tangent of y and x.
func Atan2(y, x Structure) Structure {
	y.mustMatch(x)
	r := alloc(y.c)
	y.c.Atan2(y.data, x.data, r.data)
	return r
}
