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

type staticProvider struct {
	platform string
	snaps    []domain.IdentitySnapshot
	err      error
}

func (p *staticProvider) Platform() string { return p.platform }

func (p *staticProvider) FetchIdentities(_ context.Context) ([]domain.IdentitySnapshot, error) {
	return p.snaps, p.err
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	reg, err := NewRegistry(BuiltinFactors()...)
	require.NoError(t, err)
	return NewService(reg)
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	generatedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	snaps := []domain.IdentitySnapshot{
		{ID: "U1", Name: "ghost", Type: domain.IdentityTypeUser, Platform: "aws"},
		{Name: "no-id", Type: domain.IdentityTypeUser, Platform: "aws"},
		{
			ID: "U2", Name: "builder", Type: domain.IdentityTypeUser, Platform: "aws",
			LastActivity: ptrTime(generatedAt.Add(-time.Hour)),
			Policies: []domain.PermissionDocument{
				{Name: "broken", Statements: []domain.Statement{
					{Effect: "grant", Actions: []string{"*"}, Resources: []string{"*"}},
				}},
			},
		},
		{ID: "U3", Name: "mystery", Type: "service", Platform: "aws"},
	}

	res, err := svc.Run(ctx, Request{Snapshots: snaps, Config: DefaultConfig(), RunTime: generatedAt})
	require.NoError(t, err)

	// U1 and U2 survive screening; the ID-less and unknown-type snapshots drop.
	require.Len(t, res.Findings, 2)
	assert.Equal(t, "U1", res.Findings[0].IdentityID)
	assert.Equal(t, 75, res.Findings[0].Score)
	assert.Equal(t, domain.RiskLevelHigh, res.Findings[0].Level)
	assert.Equal(t, "U2", res.Findings[1].IdentityID)
	assert.Equal(t, 0, res.Findings[1].Score)

	require.Len(t, res.Warnings, 3)
	assert.Equal(t, domain.WarningStageSource, res.Warnings[0].Stage)
	assert.Equal(t, "no-id", res.Warnings[0].Subject)
	assert.Equal(t, domain.WarningStagePolicy, res.Warnings[1].Stage)
	assert.Equal(t, "broken", res.Warnings[1].Subject)
	assert.Equal(t, domain.WarningStageSource, res.Warnings[2].Stage)
	assert.Equal(t, "U3", res.Warnings[2].Subject)

	assert.Equal(t, generatedAt, res.GeneratedAt)
	for _, f := range res.Findings {
		assert.Equal(t, generatedAt, f.EvaluatedAt)
	}
}

func TestService_Run_Deterministic(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	generatedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	snaps := []domain.IdentitySnapshot{
		{ID: "U2", Type: domain.IdentityTypeUser},
		{ID: "U1", Type: domain.IdentityTypeUser},
		{ID: "U3", Type: domain.IdentityTypeUser, LastActivity: ptrTime(generatedAt.Add(-time.Hour))},
	}
	req := Request{Snapshots: snaps, Config: DefaultConfig(), RunTime: generatedAt}

	first, err := svc.Run(ctx, req)
	require.NoError(t, err)
	second, err := svc.Run(ctx, req)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second), "identical input must produce identical results")
}

func TestService_Run_DuplicateIdentities(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	generatedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	snaps := []domain.IdentitySnapshot{
		{ID: "U1", Type: domain.IdentityTypeUser, LastActivity: ptrTime(generatedAt.Add(-time.Hour))},
		{ID: "U1", Type: domain.IdentityTypeUser},
	}

	res, err := svc.Run(ctx, Request{Snapshots: snaps, Config: DefaultConfig(), RunTime: generatedAt})
	require.NoError(t, err)

	require.Len(t, res.Findings, 1)
	assert.Equal(t, 75, res.Findings[0].Score, "the later snapshot wins on equal timestamps")
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningStageAggregate, res.Warnings[0].Stage)
}

func TestService_Run_InvalidConfig(t *testing.T) {
	svc := newTestService(t)
	cfg := DefaultConfig()
	cfg.RiskBands = []domain.RiskBand{{Level: domain.RiskLevelLow, Min: 10, Max: 90}}

	_, err := svc.Run(context.Background(), Request{Config: cfg})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestService_RunFromSource(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("provider failure is a source error", func(t *testing.T) {
		provider := &staticProvider{platform: "aws", err: assert.AnError}
		_, err := svc.RunFromSource(ctx, provider, DefaultConfig())
		assert.ErrorIs(t, err, domain.ErrSource)
	})

	t.Run("reviews the fetched snapshot", func(t *testing.T) {
		runTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return runTime }

		provider := &staticProvider{
			platform: "aws",
			snaps:    []domain.IdentitySnapshot{{ID: "U1", Type: domain.IdentityTypeUser}},
		}
		res, err := svc.RunFromSource(ctx, provider, DefaultConfig())
		require.NoError(t, err)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, domain.RiskLevelHigh, res.Findings[0].Level)
		assert.Equal(t, runTime, res.GeneratedAt)
		assert.Equal(t, runTime, res.Findings[0].EvaluatedAt)
	})
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
