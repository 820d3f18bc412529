package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

func noopFactor(name string) Factor {
	return Factor{
		Name: name,
		Evaluate: func(fctx FactorContext) (*domain.RiskFactorResult, error) {
			return nil, nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	require.NoError(t, reg.Register(noopFactor("a")))
	require.NoError(t, reg.Register(noopFactor("b")))

	assert.Error(t, reg.Register(noopFactor("a")), "duplicate names are rejected")
	assert.Error(t, reg.Register(noopFactor("")), "empty names are rejected")
	assert.Error(t, reg.Register(Factor{Name: "c"}), "factors need an evaluate function")
}

func TestRegistry_Factors_KeepsRegistrationOrder(t *testing.T) {
	reg, err := NewRegistry(noopFactor("c"), noopFactor("a"), noopFactor("b"))
	require.NoError(t, err)

	names := make([]string, 0, 3)
	for _, f := range reg.Factors() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestRegistry_Resolve(t *testing.T) {
	reg, err := NewRegistry(noopFactor("a"), noopFactor("b"))
	require.NoError(t, err)

	all, err := reg.Resolve(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	subset, err := reg.Resolve([]string{"b"})
	require.NoError(t, err)
	require.Len(t, subset, 1)
	assert.Equal(t, "b", subset[0].Name)

	_, err = reg.Resolve([]string{"a", "missing"})
	assert.ErrorIs(t, err, domain.ErrConfig)
}
