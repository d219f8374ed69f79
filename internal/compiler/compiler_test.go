package compiler

import (
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
)

func binomial(n, k int) int {
	r := 1
	for i := 1; i <= k; i++ {
		r = r * (n - k + i) / i
	}
	return r
}

func TestSize(t *testing.T) {
	reg := NewRegistry()
	for p := 0; p < 6; p++ {
		for o := 0; o < 6; o++ {
			want := binomial(p+o, o)
			if got := reg.MustCompiler(p, o).Size(); got != want {
				t.Errorf("Size(%d, %d) = %d, want %d", p, o, got, want)
			}
			if got := reg.MustCompiler(o, p).Size(); got != want {
				t.Errorf("Size(%d, %d) = %d, want %d", o, p, got, want)
			}
		}
	}
}

func TestSizesTable(t *testing.T) {
	c := NewRegistry().MustCompiler(4, 5)
	sizes := c.Sizes()
	if len(sizes) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(sizes))
	}
	for p := range sizes {
		for o := range sizes[p] {
			var want int
			switch {
			case p == 0 || o == 0:
				want = 1
			default:
				want = sizes[p][o-1] + sizes[p-1][o]
			}
			if sizes[p][o] != want {
				t.Errorf("sizes[%d][%d] = %d, want %d", p, o, sizes[p][o], want)
			}
			if sizes[p][o] != binomial(p+o, o) {
				t.Errorf("sizes[%d][%d] = %d, want C(%d, %d) = %d", p, o, sizes[p][o], p+o, o, binomial(p+o, o))
			}
		}
	}
}

func TestIndices(t *testing.T) {
	tests := []struct {
		parameters, order int
		want              [][]int
	}{
		{0, 0, [][]int{{}}},
		{0, 1, [][]int{{}}},
		{1, 0, [][]int{{0}}},
		{1, 2, [][]int{{0}, {1}, {2}}},
		{2, 1, [][]int{{0, 0}, {1, 0}, {0, 1}}},
		{2, 2, [][]int{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {0, 2}}},
		{3, 1, [][]int{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}},
		{2, 3, [][]int{
			{0, 0}, {1, 0}, {2, 0}, {3, 0}, {0, 1},
			{1, 1}, {2, 1}, {0, 2}, {1, 2}, {0, 3},
		}},
		{3, 2, [][]int{
			{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {0, 1, 0}, {1, 1, 0},
			{0, 2, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {0, 0, 2},
		}},
		{4, 1, [][]int{{0, 0, 0, 0}, {1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		c := reg.MustCompiler(tt.parameters, tt.order)
		if c.Size() != len(tt.want) {
			t.Errorf("(%d, %d): size %d, want %d", tt.parameters, tt.order, c.Size(), len(tt.want))
			continue
		}
		for i, want := range tt.want {
			got, err := c.PartialDerivativeOrders(i)
			if err != nil {
				t.Fatalf("(%d, %d): unexpected error: %v", tt.parameters, tt.order, err)
			}
			if !slices.Equal(got, want) {
				t.Errorf("(%d, %d) offset %d: got %v, want %v", tt.parameters, tt.order, i, got, want)
			}
		}
	}
}

func TestIndexSymmetry(t *testing.T) {
	reg := NewRegistry()
	for p := 0; p < 6; p++ {
		for o := 0; o < 6; o++ {
			c := reg.MustCompiler(p, o)
			for k := 0; k < c.Size(); k++ {
				orders, err := c.PartialDerivativeOrders(k)
				if err != nil {
					t.Fatal(err)
				}
				index, err := c.PartialDerivativeIndex(orders...)
				if err != nil {
					t.Fatal(err)
				}
				if index != k {
					t.Errorf("(%d, %d): round trip of offset %d gave %d", p, o, k, index)
				}
			}
		}
	}
}

func TestPartialDerivativeIndex_Errors(t *testing.T) {
	c := NewRegistry().MustCompiler(2, 3)

	tests := []struct {
		name   string
		orders []int
		want   error
	}{
		{"missing orders", []int{1}, ErrDimensionMismatch},
		{"extra orders", []int{1, 0, 0}, ErrDimensionMismatch},
		{"too large", []int{2, 2}, ErrOrderTooLarge},
		{"negative", []int{-1, 0}, ErrNegativeDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.PartialDerivativeIndex(tt.orders...)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := c.PartialDerivativeOrders(c.Size()); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestCheckCompatibility(t *testing.T) {
	reg := NewRegistry()

	err := reg.MustCompiler(3, 2).CheckCompatibility(reg.MustCompiler(4, 2))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("parameters mismatch: got %v", err)
	}

	err = reg.MustCompiler(3, 3).CheckCompatibility(reg.MustCompiler(3, 2))
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("order mismatch: expected *DimensionError, got %v", err)
	}
	if dimErr.Got != 2 || dimErr.Want != 3 {
		t.Errorf("order mismatch: got %d/%d, want 2/3", dimErr.Got, dimErr.Want)
	}

	// compilers from distinct registries are compatible when their dimensions agree
	other := NewRegistry()
	if err := reg.MustCompiler(2, 2).CheckCompatibility(other.MustCompiler(2, 2)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistry_Negative(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Compiler(-1, 2); !errors.Is(err, ErrNegativeDimension) {
		t.Errorf("expected ErrNegativeDimension, got %v", err)
	}
	if _, err := reg.Compiler(2, -1); !errors.Is(err, ErrNegativeDimension) {
		t.Errorf("expected ErrNegativeDimension, got %v", err)
	}
}

func TestRegistry_Caching(t *testing.T) {
	var builds [][2]int
	reg := NewRegistry(WithBuildHook(func(p, o, size int) {
		builds = append(builds, [2]int{p, o})
	}))

	a := reg.MustCompiler(2, 3)
	b := reg.MustCompiler(2, 3)
	if a != b {
		t.Error("expected the same compiler instance")
	}

	// (2, 3) needs every (p, o) with p <= 2 and o <= 3
	if len(builds) != 12 {
		t.Errorf("expected 12 builds, got %d", len(builds))
	}

	reg.MustCompiler(1, 2)
	if len(builds) != 12 {
		t.Errorf("prerequisite was rebuilt: %d builds", len(builds))
	}

	reg.MustCompiler(3, 1)
	stats := reg.Stats()
	if stats.Built != int64(len(builds)) {
		t.Errorf("Stats().Built = %d, want %d", stats.Built, len(builds))
	}
	if stats.Lookups != 4 {
		t.Errorf("Stats().Lookups = %d, want 4", stats.Lookups)
	}
	if reg.MustCompiler(2, 3) != a {
		t.Error("growing the cache lost a compiler")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	got := make([]*Compiler, 16)
	for i := range got {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			got[idx] = reg.MustCompiler(idx%4, 3)
		}(i)
	}
	wg.Wait()

	for i, c := range got {
		if c != reg.MustCompiler(i%4, 3) {
			t.Errorf("goroutine %d saw a different compiler", i)
		}
	}
}

func TestTaylor(t *testing.T) {
	// f(x, y) = 1 + 2x + 3y + 4x^2 + 5xy + 6y^2, exact with order 2
	c := NewRegistry().MustCompiler(2, 2)
	data := make([]float64, c.Size())
	set := func(v float64, orders ...int) {
		i, err := c.PartialDerivativeIndex(orders...)
		if err != nil {
			t.Fatal(err)
		}
		data[i] = v
	}
	set(1, 0, 0)
	set(2, 1, 0)
	set(3, 0, 1)
	set(8, 2, 0)
	set(5, 1, 1)
	set(12, 0, 2)

	for _, d := range [][2]float64{{0, 0}, {0.5, -1}, {2, 3}} {
		dx, dy := d[0], d[1]
		want := 1 + 2*dx + 3*dy + 4*dx*dx + 5*dx*dy + 6*dy*dy
		got, err := c.Taylor(data, dx, dy)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Taylor(%v, %v) = %v, want %v", dx, dy, got, want)
		}
	}

	if _, err := c.Taylor(data, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestLinearCombinationCompensated(t *testing.T) {
	a := 1 + math.Ldexp(1, -30)
	b := 1 - math.Ldexp(1, -30)
	got := linearCombination2(a, b, -1, 1)
	want := -math.Ldexp(1, -60)
	if got != want {
		t.Errorf("linearCombination2 = %g, want %g", got, want)
	}

	if naive := a*b - 1; naive == want {
		t.Log("naive product happened to be exact")
	}

	if got := linearCombination3(math.Inf(1), 1, 1, 1, 1, 1); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf, got %v", got)
	}
	if got := linearCombination4(1, 2, 3, 4, 5, 6, 7, 8); got != 100 {
		t.Errorf("linearCombination4 = %v, want 100", got)
	}
}
