package compiler

import "math"

// Compose computes f(x) given f[k] = f^(k)(x[0]) for k = 0..Order(), using
// the precomputed Faa di Bruno terms of the layout.
func (c *Compiler) Compose(x, f, result []float64) {
	for i, terms := range c.compIndirection {
		r := 0.0
		for _, t := range terms {
			product := float64(t[0]) * f[t[1]]
			for _, g := range t[2:] {
				product *= x[g]
			}
			r += product
		}
		result[i] = r
	}
}

// Exp computes e^x.
func (c *Compiler) Exp(x, result []float64) {
	f := make([]float64, c.order+1)
	v := math.Exp(x[0])
	for i := range f {
		f[i] = v
	}
	c.Compose(x, f, result)
}

// Expm1 computes e^x - 1.
func (c *Compiler) Expm1(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Expm1(x[0])
	v := math.Exp(x[0])
	for i := 1; i <= c.order; i++ {
		f[i] = v
	}
	c.Compose(x, f, result)
}

// Log computes the natural logarithm of x.
func (c *Compiler) Log(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Log(x[0])
	logDerivatives(f, 1/x[0], 1)
	c.Compose(x, f, result)
}

// Log1p computes log(1 + x).
func (c *Compiler) Log1p(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Log1p(x[0])
	logDerivatives(f, 1/(1+x[0]), 1)
	c.Compose(x, f, result)
}

// Log10 computes the base 10 logarithm of x.
func (c *Compiler) Log10(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Log10(x[0])
	logDerivatives(f, 1/x[0], 1/math.Ln10)
	c.Compose(x, f, result)
}

// logDerivatives fills f[1:] with scale * (-1)^(k-1) (k-1)! inv^k.
func logDerivatives(f []float64, inv, scale float64) {
	xk := inv * scale
	for i := 1; i < len(f); i++ {
		f[i] = xk
		xk *= -float64(i) * inv
	}
}

// Cos computes the cosine of x.
func (c *Compiler) Cos(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Cos(x[0])
	if c.order > 0 {
		f[1] = -math.Sin(x[0])
		for i := 2; i <= c.order; i++ {
			f[i] = -f[i-2]
		}
	}
	c.Compose(x, f, result)
}

// Sin computes the sine of x.
func (c *Compiler) Sin(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Sin(x[0])
	if c.order > 0 {
		f[1] = math.Cos(x[0])
		for i := 2; i <= c.order; i++ {
			f[i] = -f[i-2]
		}
	}
	c.Compose(x, f, result)
}

// Tan computes the tangent of x.
func (c *Compiler) Tan(x, result []float64) {
	f := make([]float64, c.order+1)
	t := math.Tan(x[0])
	f[0] = t

	if c.order > 0 {
		// d^n tan(x)/dx^n = P_n(tan(x)) with P_0(t) = t and
		// P_n(t) = (1+t^2) P_(n-1)'(t); P_n has the parity of n+1 so P_(n-1)
		// and P_n share one coefficient array
		p := make([]float64, c.order+2)
		p[1] = 1
		t2 := t * t
		for n := 1; n <= c.order; n++ {
			v := 0.0
			p[n+1] = float64(n) * p[n]
			for k := n + 1; k >= 0; k -= 2 {
				v = v*t2 + p[k]
				if k > 2 {
					p[k-2] = float64(k-1)*p[k-1] + float64(k-3)*p[k-3]
				} else if k == 2 {
					p[0] = p[1]
				}
			}
			if n&1 == 0 {
				v *= t
			}
			f[n] = v
		}
	}

	c.Compose(x, f, result)
}

// Acos computes the arc cosine of x.
func (c *Compiler) Acos(x, result []float64) {
	c.arcSine(x, math.Acos(x[0]), -1, result)
}

// Asin computes the arc sine of x.
func (c *Compiler) Asin(x, result []float64) {
	c.arcSine(x, math.Asin(x[0]), 1, result)
}

// arcSine shares the derivatives of asin and acos, which only differ by sign:
// d^n/dx^n = P_n(x) / (1-x^2)^((2n-1)/2) with P_1 = sign and
// P_n(x) = (1-x^2) P_(n-1)'(x) + (2n-3) x P_(n-1)(x).
func (c *Compiler) arcSine(x []float64, value, sign float64, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = value

	if c.order > 0 {
		x0 := x[0]
		p := make([]float64, c.order)
		p[0] = sign
		x2 := x0 * x0
		g := 1 / (1 - x2)
		coeff := math.Sqrt(g)
		f[1] = coeff * p[0]
		for n := 2; n <= c.order; n++ {
			v := 0.0
			p[n-1] = float64(n-1) * p[n-2]
			for k := n - 1; k >= 0; k -= 2 {
				v = v*x2 + p[k]
				if k > 2 {
					p[k-2] = float64(k-1)*p[k-1] + float64(2*n-k)*p[k-3]
				} else if k == 2 {
					p[0] = p[1]
				}
			}
			if n&1 == 0 {
				v *= x0
			}
			coeff *= g
			f[n] = coeff * v
		}
	}

	c.Compose(x, f, result)
}

// Atan computes the arc tangent of x.
func (c *Compiler) Atan(x, result []float64) {
	f := make([]float64, c.order+1)
	x0 := x[0]
	f[0] = math.Atan(x0)

	if c.order > 0 {
		// d^n atan(x)/dx^n = Q_n(x) / (1+x^2)^n with Q_1 = 1 and
		// Q_n(x) = (1+x^2) Q_(n-1)'(x) - 2(n-1) x Q_(n-1)(x)
		q := make([]float64, c.order)
		q[0] = 1
		x2 := x0 * x0
		g := 1 / (1 + x2)
		coeff := g
		f[1] = coeff * q[0]
		for n := 2; n <= c.order; n++ {
			v := 0.0
			q[n-1] = -float64(n) * q[n-2]
			for k := n - 1; k >= 0; k -= 2 {
				v = v*x2 + q[k]
				if k > 2 {
					q[k-2] = float64(k-1)*q[k-1] + float64(k-1-2*n)*q[k-3]
				} else if k == 2 {
					q[0] = q[1]
				}
			}
			if n&1 == 0 {
				v *= x0
			}
			coeff *= g
			f[n] = coeff * v
		}
	}

	c.Compose(x, f, result)
}

// Atan2 computes the two-argument arc tangent of y and x.
func (c *Compiler) Atan2(y, x, result []float64) {
	size := c.Size()

	// r = sqrt(x^2 + y^2)
	tmp1 := make([]float64, size)
	c.Multiply(x, x, tmp1)
	tmp2 := make([]float64, size)
	c.Multiply(y, y, tmp2)
	c.Add(tmp1, tmp2, tmp2)
	c.RootN(tmp2, 2, tmp1)

	if x[0] >= 0 {
		// atan2(y, x) = 2 atan(y / (r + x))
		c.Add(tmp1, x, tmp2)
		c.Divide(y, tmp2, tmp1)
		c.Atan(tmp1, tmp2)
		for i := range tmp2 {
			result[i] = 2 * tmp2[i]
		}
	} else {
		// atan2(y, x) = +/-pi - 2 atan(y / (r - x))
		c.Subtract(tmp1, x, tmp2)
		c.Divide(y, tmp2, tmp1)
		c.Atan(tmp1, tmp2)
		if tmp2[0] <= 0 {
			result[0] = -math.Pi - 2*tmp2[0]
		} else {
			result[0] = math.Pi - 2*tmp2[0]
		}
		for i := 1; i < size; i++ {
			result[i] = -2 * tmp2[i]
		}
	}

	// signed zeros and infinities
	result[0] = math.Atan2(y[0], x[0])
}

// Cosh computes the hyperbolic cosine of x.
func (c *Compiler) Cosh(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Cosh(x[0])
	if c.order > 0 {
		f[1] = math.Sinh(x[0])
		for i := 2; i <= c.order; i++ {
			f[i] = f[i-2]
		}
	}
	c.Compose(x, f, result)
}

// Sinh computes the hyperbolic sine of x.
func (c *Compiler) Sinh(x, result []float64) {
	f := make([]float64, c.order+1)
	f[0] = math.Sinh(x[0])
	if c.order > 0 {
		f[1] = math.Cosh(x[0])
		for i := 2; i <= c.order; i++ {
			f[i] = f[i-2]
		}
	}
	c.Compose(x, f, result)
}

// Tanh computes the hyperbolic tangent of x.
func (c *Compiler) Tanh(x, result []float64) {
	f := make([]float64, c.order+1)
	t := math.Tanh(x[0])
	f[0] = t

	if c.order > 0 {
		// d^n tanh(x)/dx^n = P_n(tanh(x)) with P_0(t) = t and
		// P_n(t) = (1-t^2) P_(n-1)'(t)
		p := make([]float64, c.order+2)
		p[1] = 1
		t2 := t * t
		for n := 1; n <= c.order; n++ {
			v := 0.0
			p[n+1] = -float64(n) * p[n]
			for k := n + 1; k >= 0; k -= 2 {
				v = v*t2 + p[k]
				if k > 2 {
					p[k-2] = float64(k-1)*p[k-1] - float64(k-3)*p[k-3]
				} else if k == 2 {
					p[0] = p[1]
				}
			}
			if n&1 == 0 {
				v *= t
			}
			f[n] = v
		}
	}

	c.Compose(x, f, result)
}

// Acosh computes the inverse hyperbolic cosine of x.
func (c *Compiler) Acosh(x, result []float64) {
	f := make([]float64, c.order+1)
	x0 := x[0]
	f[0] = math.Acosh(x0)

	if c.order > 0 {
		// d^n acosh(x)/dx^n = P_n(x) / (x^2-1)^((2n-1)/2) with P_1 = 1 and
		// P_n(x) = (x^2-1) P_(n-1)'(x) - (2n-3) x P_(n-1)(x)
		p := make([]float64, c.order)
		p[0] = 1
		x2 := x0 * x0
		g := 1 / (x2 - 1)
		coeff := math.Sqrt(g)
		f[1] = coeff * p[0]
		for n := 2; n <= c.order; n++ {
			v := 0.0
			p[n-1] = float64(1-n) * p[n-2]
			for k := n - 1; k >= 0; k -= 2 {
				v = v*x2 + p[k]
				if k > 2 {
					p[k-2] = float64(1-k)*p[k-1] + float64(k-2*n)*p[k-3]
				} else if k == 2 {
					p[0] = -p[1]
				}
			}
			if n&1 == 0 {
				v *= x0
			}
			coeff *= g
			f[n] = coeff * v
		}
	}

	c.Compose(x, f, result)
}

// Asinh computes the inverse hyperbolic sine of x.
func (c *Compiler) Asinh(x, result []float64) {
	f := make([]float64, c.order+1)
	x0 := x[0]
	f[0] = math.Asinh(x0)

	if c.order > 0 {
		// d^n asinh(x)/dx^n = P_n(x) / (x^2+1)^((2n-1)/2) with P_1 = 1 and
		// P_n(x) = (x^2+1) P_(n-1)'(x) - (2n-3) x P_(n-1)(x)
		p := make([]float64, c.order)
		p[0] = 1
		x2 := x0 * x0
		g := 1 / (1 + x2)
		coeff := math.Sqrt(g)
		f[1] = coeff * p[0]
		for n := 2; n <= c.order; n++ {
			v := 0.0
			p[n-1] = float64(1-n) * p[n-2]
			for k := n - 1; k >= 0; k -= 2 {
				v = v*x2 + p[k]
				if k > 2 {
					p[k-2] = float64(k-1)*p[k-1] + float64(k-2*n)*p[k-3]
				} else if k == 2 {
					p[0] = p[1]
				}
			}
			if n&1 == 0 {
				v *= x0
			}
			coeff *= g
			f[n] = coeff * v
		}
	}

	c.Compose(x, f, result)
}

// Atanh computes the inverse hyperbolic tangent of x.
func (c *Compiler) Atanh(x, result []float64) {
	f := make([]float64, c.order+1)
	x0 := x[0]
	f[0] = math.Atanh(x0)

	if c.order > 0 {
		// d^n atanh(x)/dx^n = Q_n(x) / (1-x^2)^n with Q_1 = 1 and
		// Q_n(x) = (1-x^2) Q_(n-1)'(x) + 2(n-1) x Q_(n-1)(x)
		q := make([]float64, c.order)
		q[0] = 1
		x2 := x0 * x0
		g := 1 / (1 - x2)
		coeff := g
		f[1] = coeff * q[0]
		for n := 2; n <= c.order; n++ {
			v := 0.0
			q[n-1] = float64(n) * q[n-2]
			for k := n - 1; k >= 0; k -= 2 {
				v = v*x2 + q[k]
				if k > 2 {
					q[k-2] = float64(k-1)*q[k-1] + float64(2*n-k+1)*q[k-3]
				} else if k == 2 {
					q[0] = q[1]
				}
			}
			if n&1 == 0 {
				v *= x0
			}
			coeff *= g
			f[n] = coeff * v
		}
	}

	c.Compose(x, f, result)
}
