package deriv

func (d Structure) apply(op func(x, result []float64)) Structure {
	r := alloc(d.c)
	op(d.data, r.data)
	return r
}

// Exp returns e^d.
func (d Structure) Exp() Structure { return d.apply(d.c.Exp) }

// Expm1 returns e^d - 1.
func (d Structure) Expm1() Structure { return d.apply(d.c.Expm1) }

// Log returns the natural logarithm of d.
func (d Structure) Log() Structure { return d.apply(d.c.Log) }

// Log1p returns log(1 + d).
func (d Structure) Log1p() Structure { return d.apply(d.c.Log1p) }

// Log10 returns the base 10 logarithm of d.
func (d Structure) Log10() Structure { return d.apply(d.c.Log10) }

func (d Structure) Sin() Structure  { return d.apply(d.c.Sin) }
func (d Structure) Cos() Structure  { return d.apply(d.c.Cos) }
func (d Structure) Tan() Structure  { return d.apply(d.c.Tan) }
func (d Structure) Asin() Structure { return d.apply(d.c.Asin) }
func (d Structure) Acos() Structure { return d.apply(d.c.Acos) }
func (d Structure) Atan() Structure { return d.apply(d.c.Atan) }

func (d Structure) Sinh() Structure  { return d.apply(d.c.Sinh) }
func (d Structure) Cosh() Structure  { return d.apply(d.c.Cosh) }
func (d Structure) Tanh() Structure  { return d.apply(d.c.Tanh) }
func (d Structure) Asinh() Structure { return d.apply(d.c.Asinh) }
func (d Structure) Acosh() Structure { return d.apply(d.c.Acosh) }
func (d Structure) Atanh() Structure { return d.apply(d.c.Atanh) }
