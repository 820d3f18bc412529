package review

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

var runTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func builtinEngine(t *testing.T, cfg domain.ReviewConfig) *Engine {
	t.Helper()
	reg, err := NewRegistry(BuiltinFactors()...)
	require.NoError(t, err)
	engine, err := NewEngine(reg, cfg)
	require.NoError(t, err)
	return engine
}

func TestNewEngine(t *testing.T) {
	reg, err := NewRegistry(BuiltinFactors()...)
	require.NoError(t, err)

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StalenessThresholdDays = -1
		_, err := NewEngine(reg, cfg)
		assert.ErrorIs(t, err, domain.ErrConfig)
	})

	t.Run("rejects unknown enabled factor", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnabledFactors = []string{FactorUnusedIdentity, "mfa_disabled"}
		_, err := NewEngine(reg, cfg)
		assert.ErrorIs(t, err, domain.ErrConfig)
	})
}

func TestEngine_EvaluateIdentity(t *testing.T) {
	engine := builtinEngine(t, DefaultConfig())

	t.Run("never used identity with no policies scores 75 high", func(t *testing.T) {
		finding, warnings := engine.EvaluateIdentity(domain.IdentitySnapshot{
			ID:       "U1",
			Name:     "ghost",
			Type:     domain.IdentityTypeUser,
			Platform: "aws",
		}, runTime)

		assert.Empty(t, warnings)
		assert.Equal(t, 75, finding.Score)
		assert.Equal(t, domain.RiskLevelHigh, finding.Level)
		assert.Equal(t, runTime, finding.EvaluatedAt)
		require.Len(t, finding.Factors, 1)
		assert.Equal(t, FactorUnusedIdentity, finding.Factors[0].Factor)
		assert.Contains(t, finding.Factors[0].Evidence, "no recorded activity")
	})

	t.Run("active identity with scoped policies scores zero", func(t *testing.T) {
		active := runTime.Add(-24 * time.Hour)
		finding, warnings := engine.EvaluateIdentity(domain.IdentitySnapshot{
			ID:           "U2",
			Name:         "builder",
			Type:         domain.IdentityTypeUser,
			Platform:     "aws",
			LastActivity: &active,
			Policies: []domain.PermissionDocument{
				{Name: "scoped", Statements: []domain.Statement{
					{Effect: domain.EffectAllow, Actions: []string{"s3:GetObject"}, Resources: []string{"arn:aws:s3:::b/k"}},
				}},
			},
		}, runTime)

		assert.Empty(t, warnings)
		assert.Equal(t, 0, finding.Score)
		assert.Equal(t, domain.RiskLevelLow, finding.Level)
		assert.Empty(t, finding.Factors)
	})

	t.Run("stale admin stacks factors and sorts them by weight", func(t *testing.T) {
		stale := runTime.Add(-120 * 24 * time.Hour)
		finding, _ := engine.EvaluateIdentity(domain.IdentitySnapshot{
			ID:           "R1",
			Name:         "legacy-admin",
			Type:         domain.IdentityTypeRole,
			Platform:     "aws",
			LastActivity: &stale,
			Policies: []domain.PermissionDocument{
				{Name: "admin", Statements: []domain.Statement{
					{Effect: domain.EffectAllow, Actions: []string{"*"}, Resources: []string{"*"}},
				}},
			},
		}, runTime)

		assert.Equal(t, 100, finding.Score, "75+60 clamps to 100")
		assert.Equal(t, domain.RiskLevelCritical, finding.Level)
		require.Len(t, finding.Factors, 2)
		assert.Equal(t, FactorUnusedIdentity, finding.Factors[0].Factor)
		assert.Equal(t, FactorAdministrativePolicy, finding.Factors[1].Factor)
	})

	t.Run("administrative identity does not also trigger broad", func(t *testing.T) {
		active := runTime.Add(-time.Hour)
		finding, _ := engine.EvaluateIdentity(domain.IdentitySnapshot{
			ID:           "U3",
			Type:         domain.IdentityTypeUser,
			LastActivity: &active,
			Policies: []domain.PermissionDocument{
				{Name: "admin", Statements: []domain.Statement{
					{Effect: domain.EffectAllow, Actions: []string{"*"}, Resources: []string{"*"}},
				}},
				{Name: "s3-full", Statements: []domain.Statement{
					{Effect: domain.EffectAllow, Actions: []string{"s3:*"}, Resources: []string{"arn:aws:s3:::b"}},
				}},
			},
		}, runTime)

		require.Len(t, finding.Factors, 1)
		assert.Equal(t, FactorAdministrativePolicy, finding.Factors[0].Factor)
		assert.Equal(t, 60, finding.Score)
	})

	t.Run("zero threshold counts any idle identity as unused", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StalenessThresholdDays = 0
		zeroEngine := builtinEngine(t, cfg)

		justNow := runTime
		finding, _ := zeroEngine.EvaluateIdentity(domain.IdentitySnapshot{
			ID: "U4", Type: domain.IdentityTypeUser, LastActivity: &justNow,
		}, runTime)
		assert.Empty(t, finding.Factors, "activity at the run timestamp is not stale")

		earlier := runTime.Add(-time.Minute)
		finding, _ = zeroEngine.EvaluateIdentity(domain.IdentitySnapshot{
			ID: "U5", Type: domain.IdentityTypeUser, LastActivity: &earlier,
		}, runTime)
		require.Len(t, finding.Factors, 1)
		assert.Equal(t, FactorUnusedIdentity, finding.Factors[0].Factor)
	})
}

func TestEngine_RawScoreClamping(t *testing.T) {
	factors := append(BuiltinFactors(), Factor{
		Name:        "always_on",
		Description: "test factor that always triggers",
		Evaluate: func(fctx FactorContext) (*domain.RiskFactorResult, error) {
			return &domain.RiskFactorResult{Factor: "always_on", Weight: 30, Evidence: "always"}, nil
		},
	})
	reg, err := NewRegistry(factors...)
	require.NoError(t, err)
	engine, err := NewEngine(reg, DefaultConfig())
	require.NoError(t, err)

	finding, _ := engine.EvaluateIdentity(domain.IdentitySnapshot{
		ID:   "U1",
		Type: domain.IdentityTypeUser,
		Policies: []domain.PermissionDocument{
			{Name: "admin", Statements: []domain.Statement{
				{Effect: domain.EffectAllow, Actions: []string{"*"}, Resources: []string{"*"}},
			}},
		},
	}, runTime)

	// 75 + 60 + 30 = 165 raw
	assert.Equal(t, 100, finding.Score)
	assert.Equal(t, domain.RiskLevelCritical, finding.Level)
	require.Len(t, finding.Factors, 3)
}

func TestEngine_FactorFailures(t *testing.T) {
	boom := Factor{
		Name: "boom",
		Evaluate: func(fctx FactorContext) (*domain.RiskFactorResult, error) {
			panic("nil map write")
		},
	}
	broken := Factor{
		Name: "broken",
		Evaluate: func(fctx FactorContext) (*domain.RiskFactorResult, error) {
			return nil, assert.AnError
		},
	}
	reg, err := NewRegistry(append(BuiltinFactors(), boom, broken)...)
	require.NoError(t, err)
	engine, err := NewEngine(reg, DefaultConfig())
	require.NoError(t, err)

	finding, warnings := engine.EvaluateIdentity(domain.IdentitySnapshot{
		ID: "U1", Type: domain.IdentityTypeUser,
	}, runTime)

	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, domain.WarningStageFactor, w.Stage)
	}
	assert.Contains(t, warnings[0].Detail, "panicked")

	// the healthy factors still scored the identity
	assert.Equal(t, 75, finding.Score)
	assert.Equal(t, domain.RiskLevelHigh, finding.Level)
}

func TestEngine_EvaluateAll(t *testing.T) {
	engine := builtinEngine(t, DefaultConfig())

	snaps := []domain.IdentitySnapshot{
		{ID: "U1", Type: domain.IdentityTypeUser},
		{ID: "U2", Type: domain.IdentityTypeUser},
		{ID: "U3", Type: domain.IdentityTypeUser},
	}

	t.Run("keeps input order", func(t *testing.T) {
		findings, warnings, err := engine.EvaluateAll(context.Background(), snaps, runTime)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, findings, 3)
		for i, f := range findings {
			assert.Equal(t, snaps[i].ID, f.IdentityID)
		}
	})

	t.Run("is deterministic across runs", func(t *testing.T) {
		first, _, err := engine.EvaluateAll(context.Background(), snaps, runTime)
		require.NoError(t, err)
		second, _, err := engine.EvaluateAll(context.Background(), snaps, runTime)
		require.NoError(t, err)
		assert.True(t, reflect.DeepEqual(first, second))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := engine.EvaluateAll(ctx, snaps, runTime)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero workers falls back to the default pool", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Workers = 0
		zeroEngine := builtinEngine(t, cfg)
		findings, _, err := zeroEngine.EvaluateAll(context.Background(), snaps, runTime)
		require.NoError(t, err)
		assert.Len(t, findings, 3)
	})
}
