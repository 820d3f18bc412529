package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfig marks review configuration that fails validation. Runs never
	// start with an invalid config.
	ErrConfig = errors.New("invalid review configuration")

	// ErrSource marks a source that could not deliver its snapshot at all.
	ErrSource = errors.New("identity source unavailable")

	// ErrNotFound marks a lookup of a profile or stored run that does not exist.
	ErrNotFound = errors.New("not found")
)

const (
	MinScore = 0
	MaxScore = 100
)

// ClampScore bounds a raw factor-weight sum to the reportable score range.
func ClampScore(raw int) int {
	if raw < MinScore {
		return MinScore
	}
	if raw > MaxScore {
		return MaxScore
	}
	return raw
}

// RiskBand maps a contiguous score range onto a risk level.
type RiskBand struct {
	Level RiskLevel
	Min   int
	Max   int
}

func DefaultRiskBands() []RiskBand {
	return []RiskBand{
		{Level: RiskLevelLow, Min: 0, Max: 29},
		{Level: RiskLevelMedium, Min: 30, Max: 59},
		{Level: RiskLevelHigh, Min: 60, Max: 79},
		{Level: RiskLevelCritical, Min: 80, Max: 100},
	}
}

// ValidateRiskBands checks that bands cover 0..100 with no gaps or overlaps
// and with levels strictly ascending.
func ValidateRiskBands(bands []RiskBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: no risk bands defined", ErrConfig)
	}
	if bands[0].Min != MinScore {
		return fmt.Errorf("%w: first band starts at %d, want %d", ErrConfig, bands[0].Min, MinScore)
	}
	for i, b := range bands {
		if b.Min > b.Max {
			return fmt.Errorf("%w: band %s has min %d above max %d", ErrConfig, b.Level, b.Min, b.Max)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if b.Min != prev.Max+1 {
			return fmt.Errorf("%w: band %s starts at %d, band %s ends at %d", ErrConfig, b.Level, b.Min, prev.Level, prev.Max)
		}
		if b.Level <= prev.Level {
			return fmt.Errorf("%w: band levels must ascend, %s follows %s", ErrConfig, b.Level, prev.Level)
		}
	}
	if last := bands[len(bands)-1]; last.Max != MaxScore {
		return fmt.Errorf("%w: last band ends at %d, want %d", ErrConfig, last.Max, MaxScore)
	}
	return nil
}

// LevelForScore resolves a clamped score against a validated band set.
func LevelForScore(score int, bands []RiskBand) RiskLevel {
	for _, b := range bands {
		if score >= b.Min && score <= b.Max {
			return b.Level
		}
	}
	return bands[len(bands)-1].Level
}

type ReviewConfig struct {
	StalenessThresholdDays int
	FactorWeights          map[string]int // factor name -> weight override
	EnabledFactors         []string       // empty runs every registered factor
	RiskBands              []RiskBand
	Workers                int
	AlertLevel             RiskLevel
	SuppressionDays        int
}

func (c ReviewConfig) Validate() error {
	if c.StalenessThresholdDays < 0 {
		return fmt.Errorf("%w: staleness threshold %d days is negative", ErrConfig, c.StalenessThresholdDays)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: worker count %d is negative", ErrConfig, c.Workers)
	}
	if c.SuppressionDays < 0 {
		return fmt.Errorf("%w: suppression window %d days is negative", ErrConfig, c.SuppressionDays)
	}
	for name, w := range c.FactorWeights {
		if w < 0 {
			return fmt.Errorf("%w: factor %q has negative weight %d", ErrConfig, name, w)
		}
	}
	return ValidateRiskBands(c.RiskBands)
}

func (c ReviewConfig) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessThresholdDays) * 24 * time.Hour
}

func (c ReviewConfig) SuppressionWindow() time.Duration {
	return time.Duration(c.SuppressionDays) * 24 * time.Hour
}

// WeightFor returns the configured weight for a factor, or fallback when the
// config does not override it.
func (c ReviewConfig) WeightFor(factor string, fallback int) int {
	if w, ok := c.FactorWeights[factor]; ok {
		return w
	}
	return fallback
}
