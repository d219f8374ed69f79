package compiler

import "math"

// The flat-array operations below assume every slice has length Size().
// Elementwise operations (Add, Subtract, LinearCombination*) accept a result
// aliasing one of the operands; the others require a distinct result slice.

// LinearCombination2 computes a1*c1 + a2*c2 coefficient-wise.
func (c *Compiler) LinearCombination2(a1 float64, c1 []float64, a2 float64, c2 []float64, result []float64) {
	for i := range result[:c.Size()] {
		result[i] = linearCombination2(a1, c1[i], a2, c2[i])
	}
}

// LinearCombination3 computes a1*c1 + a2*c2 + a3*c3 coefficient-wise.
func (c *Compiler) LinearCombination3(a1 float64, c1 []float64, a2 float64, c2 []float64,
	a3 float64, c3 []float64, result []float64) {
	for i := range result[:c.Size()] {
		result[i] = linearCombination3(a1, c1[i], a2, c2[i], a3, c3[i])
	}
}

// LinearCombination4 computes a1*c1 + a2*c2 + a3*c3 + a4*c4 coefficient-wise.
func (c *Compiler) LinearCombination4(a1 float64, c1 []float64, a2 float64, c2 []float64,
	a3 float64, c3 []float64, a4 float64, c4 []float64, result []float64) {
	for i := range result[:c.Size()] {
		result[i] = linearCombination4(a1, c1[i], a2, c2[i], a3, c3[i], a4, c4[i])
	}
}

// Add computes lhs + rhs.
func (c *Compiler) Add(lhs, rhs, result []float64) {
	for i := range result[:c.Size()] {
		result[i] = lhs[i] + rhs[i]
	}
}

// Subtract computes lhs - rhs.
func (c *Compiler) Subtract(lhs, rhs, result []float64) {
	for i := range result[:c.Size()] {
		result[i] = lhs[i] - rhs[i]
	}
}

// Multiply computes lhs * rhs, dropping every term beyond the compiler order.
func (c *Compiler) Multiply(lhs, rhs, result []float64) {
	for i, terms := range c.multIndirection {
		r := 0.0
		for _, t := range terms {
			r += float64(t[0]) * lhs[t[1]] * rhs[t[2]]
		}
		result[i] = r
	}
}

// Divide computes lhs / rhs as lhs * rhs^-1.
func (c *Compiler) Divide(lhs, rhs, result []float64) {
	reciprocal := make([]float64, c.Size())
	c.PowInt(rhs, -1, reciprocal)
	c.Multiply(lhs, reciprocal, result)
}

// Remainder computes the IEEE 754 remainder of lhs / rhs. The value is
// lhs - k*rhs for the integer k nearest to lhs/rhs, and k is treated as a
// constant for the derivatives.
func (c *Compiler) Remainder(lhs, rhs, result []float64) {
	rem := math.Remainder(lhs[0], rhs[0])
	k := math.RoundToEven((lhs[0] - rem) / rhs[0])

	result[0] = rem
	for i := 1; i < c.Size(); i++ {
		result[i] = lhs[i] - k*rhs[i]
	}
}

// Pow computes x^p for a real exponent.
func (c *Compiler) Pow(x []float64, p float64, result []float64) {
	// [x^p, p x^(p-1), p(p-1) x^(p-2), ...]
	f := make([]float64, c.order+1)
	xk := math.Pow(x[0], p-float64(c.order))
	for i := c.order; i > 0; i-- {
		f[i] = xk
		xk *= x[0]
	}
	f[0] = xk

	coefficient := p
	for i := 1; i <= c.order; i++ {
		f[i] *= coefficient
		coefficient *= p - float64(i)
	}

	c.Compose(x, f, result)
}

// PowInt computes x^n for an integer exponent.
func (c *Compiler) PowInt(x []float64, n int, result []float64) {
	if n == 0 {
		result[0] = 1
		clear(result[1:c.Size()])
		return
	}

	// [x^n, n x^(n-1), n(n-1) x^(n-2), ...]
	f := make([]float64, c.order+1)
	if n > 0 {
		maxOrder := min(c.order, n)
		xk := math.Pow(x[0], float64(n-maxOrder))
		for i := maxOrder; i > 0; i-- {
			f[i] = xk
			xk *= x[0]
		}
		f[0] = xk
	} else {
		inv := 1 / x[0]
		xk := math.Pow(inv, float64(-n))
		for i := 0; i <= c.order; i++ {
			f[i] = xk
			xk *= inv
		}
	}

	coefficient := float64(n)
	for i := 1; i <= c.order; i++ {
		f[i] *= coefficient
		coefficient *= float64(n - i)
	}

	c.Compose(x, f, result)
}

// PowStructure computes x^y as exp(y log x). The value of x must be positive
// for the result to be finite.
func (c *Compiler) PowStructure(x, y, result []float64) {
	logX := make([]float64, c.Size())
	c.Log(x, logX)
	yLogX := make([]float64, c.Size())
	c.Multiply(logX, y, yLogX)
	c.Exp(yLogX, result)
}

// PowBase computes a^x for a constant base.
func (c *Compiler) PowBase(a float64, x, result []float64) {
	f := make([]float64, c.order+1)
	if a == 0 {
		if x[0] == 0 {
			// 0^0 is 1, higher derivatives are not defined
			f[0] = 1
			for i := 1; i <= c.order; i++ {
				f[i] = math.NaN()
			}
		}
		// 0^x is 0 for positive x, derivatives vanish
	} else {
		f[0] = math.Pow(a, x[0])
		lnA := math.Log(a)
		for i := 1; i <= c.order; i++ {
			f[i] = f[i-1] * lnA
		}
	}
	c.Compose(x, f, result)
}

// RootN computes the n-th root of x.
func (c *Compiler) RootN(x []float64, n int, result []float64) {
	// [x^(1/n), (1/n) x^(1/n - 1), (1-n)/n^2 x^(1/n - 2), ...]
	f := make([]float64, c.order+1)
	var xk float64
	switch n {
	case 2:
		f[0] = math.Sqrt(x[0])
		xk = 0.5 / f[0]
	case 3:
		f[0] = math.Cbrt(x[0])
		xk = 1 / (3 * f[0] * f[0])
	default:
		f[0] = math.Pow(x[0], 1/float64(n))
		xk = 1 / (float64(n) * math.Pow(f[0], float64(n-1)))
	}

	nReciprocal := 1 / float64(n)
	xReciprocal := 1 / x[0]
	for i := 1; i <= c.order; i++ {
		f[i] = xk
		xk *= xReciprocal * (nReciprocal - float64(i))
	}

	c.Compose(x, f, result)
}

// linearCombination2..4 compute sums of products with twice the working
// precision (Ogita, Rump and Oishi Dot2), falling back to the naive sum when
// the compensated one is NaN because of infinite operands.
func linearCombination2(a1, b1, a2, b2 float64) float64 {
	p, s := twoProduct(a1, b1)
	p, s = accumulate(p, s, a2, b2)
	if r := p + s; !math.IsNaN(r) {
		return r
	}
	return a1*b1 + a2*b2
}

func linearCombination3(a1, b1, a2, b2, a3, b3 float64) float64 {
	p, s := twoProduct(a1, b1)
	p, s = accumulate(p, s, a2, b2)
	p, s = accumulate(p, s, a3, b3)
	if r := p + s; !math.IsNaN(r) {
		return r
	}
	return a1*b1 + a2*b2 + a3*b3
}

func linearCombination4(a1, b1, a2, b2, a3, b3, a4, b4 float64) float64 {
	p, s := twoProduct(a1, b1)
	p, s = accumulate(p, s, a2, b2)
	p, s = accumulate(p, s, a3, b3)
	p, s = accumulate(p, s, a4, b4)
	if r := p + s; !math.IsNaN(r) {
		return r
	}
	return a1*b1 + a2*b2 + a3*b3 + a4*b4
}

func accumulate(p, s, a, b float64) (float64, float64) {
	h, r := twoProduct(a, b)
	p, q := twoSum(p, h)
	return p, s + (q + r)
}

func twoProduct(a, b float64) (float64, float64) {
	p := a * b
	return p, math.FMA(a, b, -p)
}

func twoSum(a, b float64) (float64, float64) {
	s := a + b
	z := s - a
	return s, (a - (s - z)) + (b - z)
}
