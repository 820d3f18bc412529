package api

import "time"

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

type RiskFactor struct {
	Factor   string `json:"factor"`
	Weight   int    `json:"weight"`
	Evidence string `json:"evidence"`
}

type Finding struct {
	IdentityId   string       `json:"identity_id"`
	IdentityName string       `json:"identity_name"`
	IdentityType string       `json:"identity_type"`
	Platform     string       `json:"platform"`
	Score        int          `json:"score"`
	Level        RiskLevel    `json:"level"`
	Factors      []RiskFactor `json:"factors"`
	EvaluatedAt  time.Time    `json:"evaluated_at"`
}

type Warning struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

type ReviewResult struct {
	GeneratedAt time.Time `json:"generated_at"`
	Findings    []Finding `json:"findings"`
	Warnings    []Warning `json:"warnings,omitempty"`
}

type ReviewRun struct {
	RunId         string    `json:"run_id"`
	Profile       string    `json:"profile"`
	GeneratedAt   time.Time `json:"generated_at"`
	FindingCount  int       `json:"finding_count"`
	HighCount     int       `json:"high_count"`
	CriticalCount int       `json:"critical_count"`
}

type Profile struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
}
