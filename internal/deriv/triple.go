package deriv

import (
	"fmt"

	"github.com/san-kum/dsmath/internal/compiler"
)

// Triple is the minimal persisted form of a structure.
type Triple struct {
	Parameters   int       `json:"parameters" yaml:"parameters"`
	Order        int       `json:"order" yaml:"order"`
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`
}

// Triple flattens d. The coefficients are copied.
func (d Structure) Triple() Triple {
	return Triple{
		Parameters:   d.c.Parameters(),
		Order:        d.c.Order(),
		Coefficients: d.AllDerivatives(),
	}
}

// FromTriple rebuilds a structure, taking its compiler from reg.
func FromTriple(reg *compiler.Registry, t Triple) (Structure, error) {
	c, err := reg.Compiler(t.Parameters, t.Order)
	if err != nil {
		return Structure{}, fmt.Errorf("triple: %w", err)
	}
	return New(c, t.Coefficients)
}
