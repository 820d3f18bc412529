package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

func TestAggregate_Ordering(t *testing.T) {
	generatedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	findings := []domain.Finding{
		{IdentityID: "U3", Score: 30, EvaluatedAt: generatedAt},
		{IdentityID: "U1", Score: 75, EvaluatedAt: generatedAt},
		{IdentityID: "U4", Score: 75, EvaluatedAt: generatedAt},
		{IdentityID: "U2", Score: 100, EvaluatedAt: generatedAt},
	}

	res := Aggregate(findings, nil, generatedAt)

	require.Len(t, res.Findings, 4)
	assert.Equal(t, "U2", res.Findings[0].IdentityID)
	assert.Equal(t, "U1", res.Findings[1].IdentityID, "equal scores order by identity ID")
	assert.Equal(t, "U4", res.Findings[2].IdentityID)
	assert.Equal(t, "U3", res.Findings[3].IdentityID)
	assert.Equal(t, generatedAt, res.GeneratedAt)
	assert.Empty(t, res.Warnings)
}

func TestAggregate_Duplicates(t *testing.T) {
	generatedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := generatedAt.Add(-time.Hour)

	t.Run("later evaluation wins", func(t *testing.T) {
		res := Aggregate([]domain.Finding{
			{IdentityID: "U1", Score: 30, EvaluatedAt: generatedAt},
			{IdentityID: "U1", Score: 75, EvaluatedAt: earlier},
		}, nil, generatedAt)

		require.Len(t, res.Findings, 1)
		assert.Equal(t, 30, res.Findings[0].Score)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, domain.WarningStageAggregate, res.Warnings[0].Stage)
		assert.Equal(t, "U1", res.Warnings[0].Subject)
	})

	t.Run("equal timestamps keep the later input", func(t *testing.T) {
		res := Aggregate([]domain.Finding{
			{IdentityID: "U1", Score: 30, EvaluatedAt: generatedAt},
			{IdentityID: "U1", Score: 75, EvaluatedAt: generatedAt},
		}, nil, generatedAt)

		require.Len(t, res.Findings, 1)
		assert.Equal(t, 75, res.Findings[0].Score)
	})

	t.Run("input warnings come before duplicate warnings", func(t *testing.T) {
		input := []domain.Warning{{Stage: domain.WarningStageSource, Subject: "U9", Detail: "skipped"}}
		res := Aggregate([]domain.Finding{
			{IdentityID: "U1", EvaluatedAt: generatedAt},
			{IdentityID: "U1", EvaluatedAt: generatedAt},
		}, input, generatedAt)

		require.Len(t, res.Warnings, 2)
		assert.Equal(t, domain.WarningStageSource, res.Warnings[0].Stage)
		assert.Equal(t, domain.WarningStageAggregate, res.Warnings[1].Stage)
	})
}

func TestAggregate_Empty(t *testing.T) {
	generatedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	res := Aggregate(nil, nil, generatedAt)
	assert.Empty(t, res.Findings)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, generatedAt, res.GeneratedAt)
}
