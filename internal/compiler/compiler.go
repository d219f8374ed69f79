package compiler

import (
	"math"
	"slices"
)

// Compiler holds the layout tables of a truncated multivariate Taylor
// expansion for a fixed number of free parameters and derivation order.
//
// Coefficients are stored in a flat array. The layout is recursive: the first
// part of the array is the layout of the compiler with one parameter less
// (the "value" part with respect to the last parameter), the second part is
// the layout of the compiler with one order less, shifted by one derivation
// with respect to the last parameter (the "derivative" part).
//
// A Compiler is read-only once built and may be shared between goroutines.
type Compiler struct {
	parameters int
	order      int

	// sizes[p][o] is the array size for p parameters and order o.
	sizes [][]int

	// derivativesIndirection[i] is the multi-index stored at offset i.
	derivativesIndirection [][]int

	// lowerIndirection[i] is the offset in this layout of the element stored
	// at offset i in the layout with one order less.
	lowerIndirection []int

	// multIndirection[i] lists {coefficient, lhs index, rhs index} terms.
	multIndirection [][][3]int

	// compIndirection[i] lists {coefficient, f index, g indices...} terms.
	compIndirection [][][]int
}

// build assembles the (parameters, order) compiler from the (parameters-1,
// order) value compiler and the (parameters, order-1) derivative compiler.
// Either may be nil when the corresponding dimension is 0.
func build(parameters, order int, value, derivative *Compiler) *Compiler {
	c := &Compiler{parameters: parameters, order: order}
	c.sizes = compileSizes(parameters, order, value)
	c.derivativesIndirection = compileDerivativesIndirection(parameters, order, value, derivative)
	c.lowerIndirection = compileLowerIndirection(parameters, order, value, derivative)
	c.multIndirection = compileMultiplicationIndirection(parameters, order, value, derivative, c.lowerIndirection)
	c.compIndirection = compileCompositionIndirection(parameters, order, value, derivative, c.sizes, c.derivativesIndirection)
	return c
}

func compileSizes(parameters, order int, value *Compiler) [][]int {
	sizes := make([][]int, parameters+1)
	if parameters == 0 {
		sizes[0] = make([]int, order+1)
		for i := range sizes[0] {
			sizes[0][i] = 1
		}
		return sizes
	}

	// rows below parameters are shared with the value compiler, they are never written
	copy(sizes, value.sizes)
	sizes[parameters] = make([]int, order+1)
	sizes[parameters][0] = 1
	for i := 0; i < order; i++ {
		sizes[parameters][i+1] = sizes[parameters][i] + sizes[parameters-1][i+1]
	}
	return sizes
}

func compileDerivativesIndirection(parameters, order int, value, derivative *Compiler) [][]int {
	if parameters == 0 || order == 0 {
		return [][]int{make([]int, parameters)}
	}

	vSize := len(value.derivativesIndirection)
	dSize := len(derivative.derivativesIndirection)
	indirection := make([][]int, vSize+dSize)

	// value part: same multi-indices, last parameter order stays 0
	for i := 0; i < vSize; i++ {
		indirection[i] = make([]int, parameters)
		copy(indirection[i], value.derivativesIndirection[i])
	}

	// derivative part: one more derivation with respect to the last parameter
	for i := 0; i < dSize; i++ {
		indirection[vSize+i] = make([]int, parameters)
		copy(indirection[vSize+i], derivative.derivativesIndirection[i])
		indirection[vSize+i][parameters-1]++
	}

	return indirection
}

func compileLowerIndirection(parameters, order int, value, derivative *Compiler) []int {
	if parameters == 0 || order <= 1 {
		return []int{0}
	}

	vSize := len(value.lowerIndirection)
	dSize := len(derivative.lowerIndirection)
	lower := make([]int, vSize+dSize)
	copy(lower, value.lowerIndirection)
	for i := 0; i < dSize; i++ {
		lower[vSize+i] = value.Size() + derivative.lowerIndirection[i]
	}
	return lower
}

func compileMultiplicationIndirection(parameters, order int, value, derivative *Compiler, lower []int) [][][3]int {
	if parameters == 0 || order == 0 {
		return [][][3]int{{{1, 0, 0}}}
	}

	vSize := len(value.multIndirection)
	dSize := len(derivative.multIndirection)
	mult := make([][][3]int, vSize+dSize)
	copy(mult, value.multIndirection)

	// Leibniz rule: d(f g) = f dg + df g, applied to every lower order term
	for i := 0; i < dSize; i++ {
		dRow := derivative.multIndirection[i]
		row := make([][3]int, 0, 2*len(dRow))
		for _, term := range dRow {
			row = append(row, [3]int{term[0], lower[term[1]], vSize + term[2]})
			row = append(row, [3]int{term[0], vSize + term[1], lower[term[2]]})
		}

		combined := make([][3]int, 0, len(row))
		for j := range row {
			if row[j][0] <= 0 {
				continue
			}
			for k := j + 1; k < len(row); k++ {
				if row[j][1] == row[k][1] && row[j][2] == row[k][2] {
					row[j][0] += row[k][0]
					row[k][0] = 0
				}
			}
			combined = append(combined, row[j])
		}
		mult[vSize+i] = combined
	}

	return mult
}

func compileCompositionIndirection(parameters, order int, value, derivative *Compiler, sizes, indirection [][]int) [][][]int {
	if parameters == 0 || order == 0 {
		return [][][]int{{{1, 0}}}
	}

	vSize := len(value.compIndirection)
	dSize := len(derivative.compIndirection)
	comp := make([][][]int, vSize+dSize)
	copy(comp, value.compIndirection)

	orders := make([]int, parameters)
	for i := 0; i < dSize; i++ {
		var row [][]int
		for _, term := range derivative.compIndirection[i] {
			// term is c * f_k(g(x)) * g_l1(x) * ... * g_lp(x)

			// derive f_k with respect to the last parameter
			derivedF := make([]int, len(term)+1)
			derivedF[0] = term[0]
			derivedF[1] = term[1] + 1
			clear(orders)
			orders[parameters-1] = 1
			derivedF[len(term)] = partialIndex(parameters, order, sizes, orders)
			for j := 2; j < len(term); j++ {
				derivedF[j] = convertIndex(term[j], parameters, derivative.derivativesIndirection, parameters, order, sizes)
			}
			slices.Sort(derivedF[2:])
			row = append(row, derivedF)

			// derive each g_l in turn
			for l := 2; l < len(term); l++ {
				derivedG := make([]int, len(term))
				derivedG[0] = term[0]
				derivedG[1] = term[1]
				for j := 2; j < len(term); j++ {
					derivedG[j] = convertIndex(term[j], parameters, derivative.derivativesIndirection, parameters, order, sizes)
					if j == l {
						copy(orders, indirection[derivedG[j]])
						orders[parameters-1]++
						derivedG[j] = partialIndex(parameters, order, sizes, orders)
					}
				}
				slices.Sort(derivedG[2:])
				row = append(row, derivedG)
			}
		}

		combined := make([][]int, 0, len(row))
		for j := range row {
			if row[j][0] <= 0 {
				continue
			}
			for k := j + 1; k < len(row); k++ {
				if slices.Equal(row[j][1:], row[k][1:]) {
					row[j][0] += row[k][0]
					row[k][0] = 0
				}
			}
			combined = append(combined, row[j])
		}
		comp[vSize+i] = combined
	}

	return comp
}

// partialIndex walks the recursive layout: every derivation with respect to
// parameter i skips the value part of the (i+1, m) sub-layout.
// orders must already be validated against parameters and order.
func partialIndex(parameters, order int, sizes [][]int, orders []int) int {
	index := 0
	m := order
	for i := parameters - 1; i >= 0; i-- {
		for n := orders[i]; n > 0; n-- {
			index += sizes[i][m]
			m--
		}
	}
	return index
}

func convertIndex(index, srcP int, srcIndirection [][]int, destP, destO int, destSizes [][]int) int {
	orders := make([]int, destP)
	copy(orders, srcIndirection[index][:min(srcP, destP)])
	return partialIndex(destP, destO, destSizes, orders)
}

// Parameters returns the number of free parameters.
func (c *Compiler) Parameters() int { return c.parameters }

// Order returns the derivation order.
func (c *Compiler) Order() int { return c.order }

// Size returns the number of coefficients in a flat array.
func (c *Compiler) Size() int { return len(c.derivativesIndirection) }

// Sizes returns a copy of the sizes table, sizes[p][o] for p <= Parameters()
// and o <= Order().
func (c *Compiler) Sizes() [][]int {
	out := make([][]int, len(c.sizes))
	for i, row := range c.sizes {
		out[i] = slices.Clone(row[:c.order+1])
	}
	return out
}

// PartialDerivativeIndex returns the flat offset of the partial derivative
// with the given per-parameter derivation orders.
func (c *Compiler) PartialDerivativeIndex(orders ...int) (int, error) {
	if len(orders) != c.parameters {
		return 0, mismatch("orders length", len(orders), c.parameters)
	}
	sum := 0
	for _, n := range orders {
		if n < 0 {
			return 0, &DimensionError{What: "derivation order", Got: n, Want: 0, Wrapped: ErrNegativeDimension}
		}
		sum += n
		if sum > c.order {
			return 0, &DimensionError{What: "total derivation order", Got: sum, Want: c.order, Wrapped: ErrOrderTooLarge}
		}
	}
	return partialIndex(c.parameters, c.order, c.sizes, orders), nil
}

// PartialDerivativeOrders returns the multi-index stored at the given offset.
func (c *Compiler) PartialDerivativeOrders(index int) ([]int, error) {
	if index < 0 || index >= c.Size() {
		return nil, &DimensionError{What: "offset", Got: index, Want: c.Size() - 1, Wrapped: ErrIndexOutOfRange}
	}
	return slices.Clone(c.derivativesIndirection[index]), nil
}

// PartialDerivative reads one partial derivative from a flat array.
func (c *Compiler) PartialDerivative(data []float64, orders ...int) (float64, error) {
	if len(data) != c.Size() {
		return 0, mismatch("array length", len(data), c.Size())
	}
	index, err := c.PartialDerivativeIndex(orders...)
	if err != nil {
		return 0, err
	}
	return data[index], nil
}

// CheckCompatibility returns an error if the other compiler does not share
// the same number of parameters and order.
func (c *Compiler) CheckCompatibility(other *Compiler) error {
	if c.parameters != other.parameters {
		return mismatch("free parameters", other.parameters, c.parameters)
	}
	if c.order != other.order {
		return mismatch("derivation order", other.order, c.order)
	}
	return nil
}

// Taylor evaluates the truncated Taylor expansion stored in data at the
// given offsets from the expansion point.
func (c *Compiler) Taylor(data []float64, deltas ...float64) (float64, error) {
	if len(deltas) != c.parameters {
		return 0, mismatch("deltas length", len(deltas), c.parameters)
	}
	if len(data) != c.Size() {
		return 0, mismatch("array length", len(data), c.Size())
	}

	value := 0.0
	for i := c.Size() - 1; i >= 0; i-- {
		term := data[i]
		for k, n := range c.derivativesIndirection[i] {
			if n > 0 {
				term *= math.Pow(deltas[k], float64(n)) / factorial(n)
			}
		}
		value += term
	}
	return value, nil
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
