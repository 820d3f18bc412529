package review

import (
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// FactorContext carries everything a factor may inspect for one identity.
type FactorContext struct {
	Snapshot domain.IdentitySnapshot
	Config   domain.ReviewConfig
	// Now is the run timestamp. Factors never read the wall clock, so a rerun
	// over the same snapshot produces the same findings.
	Now time.Time
}

// EvaluateFunc inspects one identity. A nil result means the factor did not
// trigger. Returned errors degrade to warnings and never fail the run.
type EvaluateFunc func(fctx FactorContext) (*domain.RiskFactorResult, error)

// Factor is a named risk check registered with the engine.
type Factor struct {
	Name        string
	Description string
	Evaluate    EvaluateFunc
}

// Registry manages the risk factors known to the engine.
type Registry interface {
	// Register adds a new factor. Names must be unique.
	Register(f Factor) error
	// Factors returns every registered factor in registration order.
	Factors() []Factor
	// Resolve returns the named factors, or every factor when names is empty.
	Resolve(names []string) ([]Factor, error)
}

type registry struct {
	mu      sync.RWMutex
	order   []string
	factors map[string]Factor
}

// NewRegistry creates a registry seeded with the given factors.
func NewRegistry(factors ...Factor) (Registry, error) {
	r := &registry{factors: make(map[string]Factor)}
	for _, f := range factors {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *registry) Register(f Factor) error {
	if f.Name == "" {
		return fmt.Errorf("factor name cannot be empty")
	}
	if f.Evaluate == nil {
		return fmt.Errorf("factor %q has no evaluate function", f.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factors[f.Name]; exists {
		return fmt.Errorf("factor %q is already registered", f.Name)
	}

	r.order = append(r.order, f.Name)
	r.factors[f.Name] = f
	return nil
}

func (r *registry) Factors() []Factor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Factor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.factors[name])
	}
	return out
}

func (r *registry) Resolve(names []string) ([]Factor, error) {
	if len(names) == 0 {
		return r.Factors(), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Factor, 0, len(names))
	for _, name := range names {
		f, exists := r.factors[name]
		if !exists {
			return nil, fmt.Errorf("%w: factor %q is not registered", domain.ErrConfig, name)
		}
		out = append(out, f)
	}
	return out, nil
}
