package store

import "time"

type RunRecord struct {
	RunID         string
	Profile       string
	GeneratedAt   time.Time
	FindingCount  int
	HighCount     int
	CriticalCount int
}

type FindingRecord struct {
	RunID        string
	IdentityID   string
	IdentityName string
	IdentityType string
	Platform     string
	Score        int
	Level        string
	TopFactor    string
	Evidence     string
	FactorsJSON  string // serialized []domain.RiskFactorResult
	EvaluatedAt  time.Time
}

type AlertStateRecord struct {
	IdentityID  string
	LastAlerted time.Time
	Level       string
}
