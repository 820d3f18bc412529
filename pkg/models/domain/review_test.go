package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 50, ClampScore(50))
	assert.Equal(t, 100, ClampScore(100))
	assert.Equal(t, 100, ClampScore(165))
}

func TestLevelForScore_DefaultBands(t *testing.T) {
	bands := DefaultRiskBands()
	require.NoError(t, ValidateRiskBands(bands))

	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLevelLow},
		{29, RiskLevelLow},
		{30, RiskLevelMedium},
		{59, RiskLevelMedium},
		{60, RiskLevelHigh},
		{79, RiskLevelHigh},
		{80, RiskLevelCritical},
		{100, RiskLevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score, bands), "score %d", tt.score)
	}
}

func TestValidateRiskBands(t *testing.T) {
	tests := []struct {
		name  string
		bands []RiskBand
		ok    bool
	}{
		{
			name:  "default bands",
			bands: DefaultRiskBands(),
			ok:    true,
		},
		{
			name: "single band covering everything",
			bands: []RiskBand{
				{Level: RiskLevelLow, Min: 0, Max: 100},
			},
			ok: true,
		},
		{
			name:  "empty",
			bands: nil,
		},
		{
			name: "gap between bands",
			bands: []RiskBand{
				{Level: RiskLevelLow, Min: 0, Max: 29},
				{Level: RiskLevelHigh, Min: 40, Max: 100},
			},
		},
		{
			name: "overlapping bands",
			bands: []RiskBand{
				{Level: RiskLevelLow, Min: 0, Max: 50},
				{Level: RiskLevelHigh, Min: 40, Max: 100},
			},
		},
		{
			name: "does not start at zero",
			bands: []RiskBand{
				{Level: RiskLevelLow, Min: 10, Max: 100},
			},
		},
		{
			name: "does not end at hundred",
			bands: []RiskBand{
				{Level: RiskLevelLow, Min: 0, Max: 90},
			},
		},
		{
			name: "min above max",
			bands: []RiskBand{
				{Level: RiskLevelLow, Min: 0, Max: 29},
				{Level: RiskLevelHigh, Min: 30, Max: 20},
			},
		},
		{
			name: "levels out of order",
			bands: []RiskBand{
				{Level: RiskLevelHigh, Min: 0, Max: 29},
				{Level: RiskLevelLow, Min: 30, Max: 100},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRiskBands(tt.bands)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
		})
	}
}

func TestReviewConfig_Validate(t *testing.T) {
	valid := ReviewConfig{
		StalenessThresholdDays: 90,
		FactorWeights:          map[string]int{"unused_identity": 75},
		RiskBands:              DefaultRiskBands(),
		Workers:                4,
		AlertLevel:             RiskLevelHigh,
		SuppressionDays:        7,
	}
	require.NoError(t, valid.Validate())

	negThreshold := valid
	negThreshold.StalenessThresholdDays = -1
	assert.ErrorIs(t, negThreshold.Validate(), ErrConfig)

	negWorkers := valid
	negWorkers.Workers = -2
	assert.ErrorIs(t, negWorkers.Validate(), ErrConfig)

	negWeight := valid
	negWeight.FactorWeights = map[string]int{"broad_policy": -10}
	assert.ErrorIs(t, negWeight.Validate(), ErrConfig)

	negSuppression := valid
	negSuppression.SuppressionDays = -7
	assert.ErrorIs(t, negSuppression.Validate(), ErrConfig)
}

func TestReviewConfig_WeightFor(t *testing.T) {
	cfg := ReviewConfig{FactorWeights: map[string]int{"unused_identity": 40}}
	assert.Equal(t, 40, cfg.WeightFor("unused_identity", 75))
	assert.Equal(t, 60, cfg.WeightFor("administrative_policy", 60))

	zero := ReviewConfig{FactorWeights: map[string]int{"unused_identity": 0}}
	assert.Equal(t, 0, zero.WeightFor("unused_identity", 75), "explicit zero disables the weight")
}

func TestParseRiskLevel(t *testing.T) {
	for _, l := range []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical} {
		got, err := ParseRiskLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	got, err := ParseRiskLevel(" Critical ")
	require.NoError(t, err)
	assert.Equal(t, RiskLevelCritical, got)

	_, err = ParseRiskLevel("severe")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestFinding_TopFactor(t *testing.T) {
	f := Finding{Factors: []RiskFactorResult{
		{Factor: "unused_identity", Weight: 75},
		{Factor: "broad_policy", Weight: 30},
	}}
	top, ok := f.TopFactor()
	require.True(t, ok)
	assert.Equal(t, "unused_identity", top.Factor)

	_, ok = Finding{}.TopFactor()
	assert.False(t, ok)
}
