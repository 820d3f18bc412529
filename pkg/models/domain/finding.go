package domain

import (
	"fmt"
	"strings"
	"time"
)

type RiskLevel int

const (
	RiskLevelLow RiskLevel = iota
	RiskLevelMedium
	RiskLevelHigh
	RiskLevelCritical
)

func (l RiskLevel) String() string {
	switch l {
	case RiskLevelCritical:
		return "critical"
	case RiskLevelHigh:
		return "high"
	case RiskLevelMedium:
		return "medium"
	default:
		return "low"
	}
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLevelLow, nil
	case "medium":
		return RiskLevelMedium, nil
	case "high":
		return RiskLevelHigh, nil
	case "critical":
		return RiskLevelCritical, nil
	default:
		return RiskLevelLow, fmt.Errorf("%w: unknown risk level %q", ErrConfig, s)
	}
}

// RiskFactorResult is a single triggered risk factor and the evidence behind it.
type RiskFactorResult struct {
	Factor   string
	Weight   int
	Evidence string
}

type Finding struct {
	IdentityID   string
	IdentityName string
	IdentityType IdentityType
	Platform     string
	Score        int
	Level        RiskLevel
	Factors      []RiskFactorResult // weight descending, name ascending on ties
	EvaluatedAt  time.Time
}

// TopFactor returns the highest-weight triggered factor, if any.
func (f Finding) TopFactor() (RiskFactorResult, bool) {
	if len(f.Factors) == 0 {
		return RiskFactorResult{}, false
	}
	return f.Factors[0], true
}

type WarningStage string

const (
	WarningStageSource    WarningStage = "source"
	WarningStagePolicy    WarningStage = "policy"
	WarningStageFactor    WarningStage = "factor"
	WarningStageAggregate WarningStage = "aggregate"
)

// Warning records degraded input or a failed factor without failing the run.
type Warning struct {
	Stage   WarningStage
	Subject string // identity ID, document name, or factor name
	Detail  string
}

type ReviewResult struct {
	GeneratedAt time.Time
	Findings    []Finding // score descending, identity ID ascending on ties
	Warnings    []Warning
}

func (r ReviewResult) CountByLevel() map[RiskLevel]int {
	counts := make(map[RiskLevel]int, 4)
	for _, f := range r.Findings {
		counts[f.Level]++
	}
	return counts
}

// AtOrAbove returns the findings whose level is at least min, preserving order.
func (r ReviewResult) AtOrAbove(min RiskLevel) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Level >= min {
			out = append(out, f)
		}
	}
	return out
}
