package compiler

import (
	"sync"
	"sync/atomic"
)

// BuildHook is called once for every compiler a registry builds, after the
// registry lock has been released.
type BuildHook func(parameters, order, size int)

// Option configures a Registry.
type Option func(*Registry)

// WithBuildHook registers a callback invoked for each newly built compiler.
func WithBuildHook(hook BuildHook) Option {
	return func(r *Registry) {
		r.hooks = append(r.hooks, hook)
	}
}

// Stats reports registry activity.
type Stats struct {
	Lookups int64
	Built   int64
}

// Registry memoizes compilers by (parameters, order). Compilers are built
// lazily on first request, together with every smaller compiler they depend
// on, and are never evicted.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	cache [][]*Compiler // cache[parameters][order]
	hooks []BuildHook

	lookups atomic.Int64
	built   atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compiler returns the compiler for the given number of free parameters and
// derivation order, building it if needed.
func (r *Registry) Compiler(parameters, order int) (*Compiler, error) {
	if parameters < 0 {
		return nil, &DimensionError{What: "free parameters", Got: parameters, Want: 0, Wrapped: ErrNegativeDimension}
	}
	if order < 0 {
		return nil, &DimensionError{What: "derivation order", Got: order, Want: 0, Wrapped: ErrNegativeDimension}
	}
	r.lookups.Add(1)

	r.mu.RLock()
	c := r.lookup(parameters, order)
	r.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	r.mu.Lock()
	c, built := r.populate(parameters, order)
	r.mu.Unlock()

	for _, b := range built {
		for _, hook := range r.hooks {
			hook(b.parameters, b.order, b.Size())
		}
	}
	return c, nil
}

// MustCompiler is like Compiler but panics on invalid dimensions.
func (r *Registry) MustCompiler(parameters, order int) *Compiler {
	c, err := r.Compiler(parameters, order)
	if err != nil {
		panic(err)
	}
	return c
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	return Stats{Lookups: r.lookups.Load(), Built: r.built.Load()}
}

func (r *Registry) lookup(parameters, order int) *Compiler {
	if parameters < len(r.cache) && order < len(r.cache[parameters]) {
		return r.cache[parameters][order]
	}
	return nil
}

// populate must be called with the write lock held.
func (r *Registry) populate(parameters, order int) (*Compiler, []*Compiler) {
	if c := r.lookup(parameters, order); c != nil {
		return c, nil
	}
	r.grow(parameters, order)

	var built []*Compiler

	// increasing diagonals guarantee both prerequisites of (p, o) exist
	for diag := 0; diag <= parameters+order; diag++ {
		for o := max(0, diag-parameters); o <= min(order, diag); o++ {
			p := diag - o
			if r.cache[p][o] != nil {
				continue
			}
			var value, derivative *Compiler
			if p > 0 {
				value = r.cache[p-1][o]
			}
			if o > 0 {
				derivative = r.cache[p][o-1]
			}
			c := build(p, o, value, derivative)
			r.cache[p][o] = c
			r.built.Add(1)
			built = append(built, c)
		}
	}

	return r.cache[parameters][order], built
}

func (r *Registry) grow(parameters, order int) {
	rows := max(parameters+1, len(r.cache))
	cols := order + 1
	if len(r.cache) > 0 {
		cols = max(cols, len(r.cache[0]))
	}
	if rows == len(r.cache) && cols == len(r.cache[0]) {
		return
	}

	next := make([][]*Compiler, rows)
	for i := range next {
		next[i] = make([]*Compiler, cols)
		if i < len(r.cache) {
			copy(next[i], r.cache[i])
		}
	}
	r.cache = next
}
