package finitediff_test

import (
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/san-kum/dsmath/internal/compiler"
	"github.com/san-kum/dsmath/internal/deriv"
	"github.com/san-kum/dsmath/internal/finitediff"
)

type sampleCounter struct {
	mu      sync.Mutex
	samples []float64
}

func (c *sampleCounter) OnSample(x float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, x)
}

func variable(c *compiler.Compiler, index int, value float64) deriv.Structure {
	GinkgoHelper()
	v, err := deriv.Variable(c, index, value)
	Expect(err).NotTo(HaveOccurred())
	return v
}

func partial(d deriv.Structure, orders ...int) float64 {
	GinkgoHelper()
	v, err := d.PartialDerivative(orders...)
	Expect(err).NotTo(HaveOccurred())
	return v
}

func quintic(x float64) float64 {
	return (x - 1) * (x - 0.5) * x * (x + 0.5) * (x + 1)
}

func quinticStructure(x deriv.Structure) deriv.Structure {
	return x.SubScalar(1).Mul(x.SubScalar(0.5)).Mul(x).Mul(x.AddScalar(0.5)).Mul(x.AddScalar(1))
}

// maxErrors sweeps [-10, 10) and returns the largest absolute error per
// derivation order between the approximation and the exact structure.
func maxErrors(d *finitediff.Differentiator, c *compiler.Compiler,
	f finitediff.Func, exact func(deriv.Structure) deriv.Structure) []float64 {
	GinkgoHelper()
	wrapped := d.Differentiate(f)
	errs := make([]float64, c.Order()+1)
	for x := -10.0; x < 10; x += 0.1 {
		t := variable(c, 0, x)
		got, err := wrapped.Derivative(t)
		Expect(err).NotTo(HaveOccurred())
		want := exact(t)
		for n := range errs {
			errs[n] = math.Max(errs[n], math.Abs(partial(got, n)-partial(want, n)))
		}
	}
	return errs
}

var _ = Describe("Differentiator", func() {
	var reg *compiler.Registry

	BeforeEach(func() {
		reg = compiler.NewRegistry()
	})

	Describe("New", func() {
		It("rejects fewer than two points", func() {
			_, err := finitediff.New(1, 1.0)
			Expect(err).To(MatchError(finitediff.ErrTooFewPoints))
		})

		It("rejects a non-positive step", func() {
			_, err := finitediff.New(3, 0.0)
			Expect(err).To(MatchError(finitediff.ErrNonPositiveStep))
			_, err = finitediff.New(3, -1e-3)
			Expect(err).To(MatchError(finitediff.ErrNonPositiveStep))
		})

		It("keeps its settings", func() {
			d, err := finitediff.New(3, 1e-3)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Points()).To(Equal(3))
			Expect(d.Step()).To(Equal(1e-3))
		})
	})

	Describe("univariate functions", func() {
		It("differentiates a constant", func() {
			d, _ := finitediff.New(5, 0.01)
			f := d.Differentiate(func(float64) float64 { return 42 })
			c := reg.MustCompiler(1, 2)
			for x := -10.0; x < 10; x += 0.1 {
				y, err := f.Derivative(variable(c, 0, x))
				Expect(err).NotTo(HaveOccurred())
				Expect(y.Value()).To(BeNumerically("~", 42, 1e-15))
				Expect(partial(y, 1)).To(BeNumerically("~", 0, 1e-15))
				Expect(partial(y, 2)).To(BeNumerically("~", 0, 1e-15))
			}
		})

		It("differentiates a linear function", func() {
			d, _ := finitediff.New(5, 0.01)
			f := d.Differentiate(func(x float64) float64 { return 2 - 3*x })
			c := reg.MustCompiler(1, 2)
			for x := -10.0; x < 10; x += 0.1 {
				y, err := f.Derivative(variable(c, 0, x))
				Expect(err).NotTo(HaveOccurred())
				Expect(y.Value()).To(BeNumerically("~", 2-3*x, 1e-13))
				Expect(partial(y, 1)).To(BeNumerically("~", -3, 4e-13))
				Expect(partial(y, 2)).To(BeNumerically("~", 0, 9e-11))
			}
		})

		It("passes plain values through", func() {
			d, _ := finitediff.New(5, 0.01)
			f := d.Differentiate(math.Sin)
			Expect(f.Value(0.3)).To(Equal(math.Sin(0.3)))
		})

		It("approximates a gaussian", func() {
			d, _ := finitediff.New(9, 0.02)
			c := reg.MustCompiler(1, 5)
			norm := 1 / (2 * math.Sqrt(2*math.Pi))
			gaussian := func(x float64) float64 {
				return norm * math.Exp(-(x-1)*(x-1)/8)
			}
			exact := func(x deriv.Structure) deriv.Structure {
				u := x.SubScalar(1)
				return u.Mul(u).DivScalar(-8).Exp().MulScalar(norm)
			}

			expected := []float64{2.776e-17, 1.742e-15, 2.385e-13, 1.329e-11, 2.668e-9, 8.873e-8}
			for n, e := range maxErrors(d, c, gaussian, exact) {
				Expect(e).To(BeNumerically("<", math.Max(10*expected[n], 1e-15)), "order %d", n)
			}
		})

		It("is accurate with a sensible step", func() {
			d, _ := finitediff.New(7, 0.25)
			errs := maxErrors(d, reg.MustCompiler(1, 6), quintic, quinticStructure)

			expected := []float64{7.276e-12, 7.276e-11, 9.968e-10, 3.092e-9, 5.432e-8, 8.196e-8, 1.818e-6}
			for n, e := range errs {
				Expect(e).To(BeNumerically("<", math.Max(10*expected[n], 1e-15)), "order %d", n)
			}
			Expect(errs[2]).To(BeNumerically("<", 1e-8))
		})

		It("is unstable with a tiny step", func() {
			d, _ := finitediff.New(7, 1e-6)
			errs := maxErrors(d, reg.MustCompiler(1, 6), quintic, quinticStructure)

			// cancellation dominates from the second derivative on
			Expect(errs[2]).To(BeNumerically(">", 1))
			Expect(errs[3]).To(BeNumerically(">", 1e7))
			Expect(errs[6]).To(BeNumerically(">", 1e25))
		})

		It("checks the order before sampling", func() {
			d, _ := finitediff.New(3, 0.01)
			f := d.Differentiate(func(float64) float64 { panic("must not be sampled") })
			_, err := f.Derivative(variable(reg.MustCompiler(1, 3), 0, 1))
			Expect(err).To(MatchError(finitediff.ErrOrderTooLarge))
		})

		It("lets panics from the function propagate", func() {
			d, _ := finitediff.New(3, 0.01)
			f := d.Differentiate(func(float64) float64 { panic("boom") })
			Expect(func() {
				_, _ = f.Derivative(variable(reg.MustCompiler(1, 1), 0, 1))
			}).To(PanicWith("boom"))
		})

		It("works at order zero", func() {
			d, _ := finitediff.New(2, 0.5)
			f := d.Differentiate(func(x float64) float64 { return x * x })
			y, err := f.Derivative(variable(reg.MustCompiler(1, 0), 0, 3))
			Expect(err).NotTo(HaveOccurred())
			// linear interpolation between 2.75^2 and 3.25^2
			Expect(y.Value()).To(BeNumerically("~", 9.0625, 1e-14))
		})
	})

	Describe("several free parameters", func() {
		It("chains the derivatives of the argument", func() {
			d, _ := finitediff.New(5, 0.001)
			f := d.Differentiate(math.Sin)
			c := reg.MustCompiler(2, 3)

			expected := []float64{1.110e-16, 2.66e-12, 4.803e-9, 5.486e-5}
			maxErr := make([]float64, len(expected))
			for x := -2.0; x < 2; x += 0.1 {
				for y := -2.0; y < 2; y += 0.1 {
					t := variable(c, 0, x).MulScalar(3).Sub(variable(c, 1, y).MulScalar(2))
					ref := t.Sin()
					s, err := f.Derivative(t)
					Expect(err).NotTo(HaveOccurred())
					for xo := 0; xo <= 3; xo++ {
						for yo := 0; xo+yo <= 3; yo++ {
							diff := math.Abs(partial(ref, xo, yo) - partial(s, xo, yo))
							maxErr[xo+yo] = math.Max(maxErr[xo+yo], diff)
						}
					}
				}
			}
			for n, e := range maxErr {
				Expect(e).To(BeNumerically("<", math.Max(10*expected[n], 1e-15)), "order %d", n)
			}
		})
	})

	Describe("vector functions", func() {
		It("differentiates each component", func() {
			d, _ := finitediff.New(7, 0.01)
			f := d.DifferentiateVector(func(x float64) []float64 {
				return []float64{math.Cos(x), math.Sin(x)}
			})
			c := reg.MustCompiler(1, 2)
			for x := -10.0; x < 10; x += 0.1 {
				y, err := f.Derivative(variable(c, 0, x))
				Expect(err).NotTo(HaveOccurred())
				Expect(y).To(HaveLen(2))
				cos, sin := math.Cos(x), math.Sin(x)
				Expect(y[0].Value()).To(BeNumerically("~", cos, 1e-15))
				Expect(y[1].Value()).To(BeNumerically("~", sin, 1e-15))
				Expect(partial(y[0], 1)).To(BeNumerically("~", -sin, 5e-14))
				Expect(partial(y[1], 1)).To(BeNumerically("~", cos, 5e-14))
				Expect(partial(y[0], 2)).To(BeNumerically("~", -cos, 6e-12))
				Expect(partial(y[1], 2)).To(BeNumerically("~", -sin, 6e-12))
			}
		})

		It("rejects components appearing along the grid", func() {
			d, _ := finitediff.New(3, 0.1)
			calls := 0
			f := d.DifferentiateVector(func(x float64) []float64 {
				calls++
				return make([]float64, calls)
			})
			_, err := f.Derivative(variable(reg.MustCompiler(1, 1), 0, 0))
			Expect(err).To(MatchError(finitediff.ErrInconsistentShape))
		})

		It("checks the order before sampling", func() {
			d, _ := finitediff.New(3, 0.01)
			f := d.DifferentiateVector(func(float64) []float64 { panic("must not be sampled") })
			_, err := f.Derivative(variable(reg.MustCompiler(1, 3), 0, 1))
			Expect(err).To(MatchError(finitediff.ErrOrderTooLarge))
		})
	})

	Describe("matrix functions", func() {
		It("differentiates each element", func() {
			d, _ := finitediff.New(7, 0.01)
			f := d.DifferentiateMatrix(func(x float64) [][]float64 {
				return [][]float64{
					{math.Cos(x), math.Sin(x)},
					{math.Cosh(x), math.Sinh(x)},
				}
			})
			c := reg.MustCompiler(1, 2)
			for x := -1.0; x < 1; x += 0.02 {
				y, err := f.Derivative(variable(c, 0, x))
				Expect(err).NotTo(HaveOccurred())
				cos, sin := math.Cos(x), math.Sin(x)
				cosh, sinh := math.Cosh(x), math.Sinh(x)

				Expect(y[0][0].Value()).To(BeNumerically("~", cos, 1e-15))
				Expect(y[0][1].Value()).To(BeNumerically("~", sin, 1e-15))
				Expect(y[1][0].Value()).To(BeNumerically("~", cosh, 1e-15))
				Expect(y[1][1].Value()).To(BeNumerically("~", sinh, 1e-15))

				Expect(partial(y[0][0], 1)).To(BeNumerically("~", -sin, 2e-14))
				Expect(partial(y[0][1], 1)).To(BeNumerically("~", cos, 2e-14))
				Expect(partial(y[1][0], 1)).To(BeNumerically("~", sinh, 3e-14))
				Expect(partial(y[1][1], 1)).To(BeNumerically("~", cosh, 3e-14))

				// round-off of a 0.01 step dominates the second derivative
				Expect(partial(y[0][0], 2)).To(BeNumerically("~", -cos, 1e-11))
				Expect(partial(y[0][1], 2)).To(BeNumerically("~", -sin, 1e-11))
				Expect(partial(y[1][0], 2)).To(BeNumerically("~", cosh, 2e-11))
				Expect(partial(y[1][1], 2)).To(BeNumerically("~", sinh, 2e-11))
			}
		})

		It("rejects ragged changes along the grid", func() {
			d, _ := finitediff.New(3, 0.1)
			calls := 0
			f := d.DifferentiateMatrix(func(x float64) [][]float64 {
				calls++
				return [][]float64{make([]float64, 2), make([]float64, calls)}
			})
			_, err := f.Derivative(variable(reg.MustCompiler(1, 1), 0, 0))
			Expect(err).To(MatchError(finitediff.ErrInconsistentShape))
		})

		It("checks the order before sampling", func() {
			d, _ := finitediff.New(3, 0.01)
			f := d.DifferentiateMatrix(func(float64) [][]float64 { panic("must not be sampled") })
			_, err := f.Derivative(variable(reg.MustCompiler(1, 3), 0, 1))
			Expect(err).To(MatchError(finitediff.ErrOrderTooLarge))
		})
	})

	Describe("observers", func() {
		It("see every sample of the centered grid", func() {
			counter := &sampleCounter{}
			d, _ := finitediff.New(5, 0.5, finitediff.WithObserver(counter))
			f := d.Differentiate(math.Exp)

			_, err := f.Derivative(variable(reg.MustCompiler(1, 2), 0, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(counter.samples).To(Equal([]float64{0, 0.5, 1, 1.5, 2}))
		})

		It("are notified from concurrent derivatives", func() {
			counter := &sampleCounter{}
			d, _ := finitediff.New(5, 0.5, finitediff.WithObserver(counter))
			f := d.Differentiate(math.Exp)
			at := variable(reg.MustCompiler(1, 2), 0, 1)

			const goroutines = 8
			errs := make([]error, goroutines)
			var wg sync.WaitGroup
			for i := range goroutines {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = f.Derivative(at)
				}()
			}
			wg.Wait()

			for _, err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(counter.samples).To(HaveLen(goroutines * 5))
		})
	})

	Describe("agreement with gonum central differences", func() {
		It("matches the three point stencils", func() {
			const step = 1e-3
			d, _ := finitediff.New(3, step)
			f := d.Differentiate(math.Sin)
			c := reg.MustCompiler(1, 2)

			for _, x := range []float64{-2, -0.5, 0.3, 1.7} {
				y, err := f.Derivative(variable(c, 0, x))
				Expect(err).NotTo(HaveOccurred())

				first := fd.Derivative(math.Sin, x, &fd.Settings{Formula: fd.Central, Step: step})
				second := fd.Derivative(math.Sin, x, &fd.Settings{Formula: fd.Central2nd, Step: step})
				Expect(partial(y, 1)).To(BeNumerically("~", first, 1e-10))
				Expect(partial(y, 2)).To(BeNumerically("~", second, 1e-7))
			}
		})
	})
})
