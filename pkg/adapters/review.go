package adapters

import (
	"encoding/json"
	"fmt"

	"github.com/de-tools/access-atlas/pkg/models/api"
	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/models/store"
)

func MapRiskLevelDomainToApi(l domain.RiskLevel) api.RiskLevel {
	switch l {
	case domain.RiskLevelCritical:
		return api.RiskLevelCritical
	case domain.RiskLevelHigh:
		return api.RiskLevelHigh
	case domain.RiskLevelMedium:
		return api.RiskLevelMedium
	default:
		return api.RiskLevelLow
	}
}

func MapFindingDomainToApi(f domain.Finding) api.Finding {
	res := api.Finding{
		IdentityId:   f.IdentityID,
		IdentityName: f.IdentityName,
		IdentityType: string(f.IdentityType),
		Platform:     f.Platform,
		Score:        f.Score,
		Level:        MapRiskLevelDomainToApi(f.Level),
		Factors:      make([]api.RiskFactor, 0, len(f.Factors)),
		EvaluatedAt:  f.EvaluatedAt,
	}
	for _, fr := range f.Factors {
		res.Factors = append(res.Factors, api.RiskFactor{
			Factor:   fr.Factor,
			Weight:   fr.Weight,
			Evidence: fr.Evidence,
		})
	}
	return res
}

func MapWarningDomainToApi(w domain.Warning) api.Warning {
	return api.Warning{
		Stage:   string(w.Stage),
		Subject: w.Subject,
		Detail:  w.Detail,
	}
}

func MapReviewResultDomainToApi(r domain.ReviewResult) api.ReviewResult {
	res := api.ReviewResult{
		GeneratedAt: r.GeneratedAt,
		Findings:    make([]api.Finding, 0, len(r.Findings)),
	}
	for _, f := range r.Findings {
		res.Findings = append(res.Findings, MapFindingDomainToApi(f))
	}
	for _, w := range r.Warnings {
		res.Warnings = append(res.Warnings, MapWarningDomainToApi(w))
	}
	return res
}

func MapDomainFindingToStore(runID string, f domain.Finding) (store.FindingRecord, error) {
	factors, err := json.Marshal(f.Factors)
	if err != nil {
		return store.FindingRecord{}, fmt.Errorf("marshal factors for %s: %w", f.IdentityID, err)
	}
	rec := store.FindingRecord{
		RunID:        runID,
		IdentityID:   f.IdentityID,
		IdentityName: f.IdentityName,
		IdentityType: string(f.IdentityType),
		Platform:     f.Platform,
		Score:        f.Score,
		Level:        f.Level.String(),
		FactorsJSON:  string(factors),
		EvaluatedAt:  f.EvaluatedAt,
	}
	if top, ok := f.TopFactor(); ok {
		rec.TopFactor = top.Factor
		rec.Evidence = top.Evidence
	}
	return rec, nil
}

func MapStoreFindingToDomain(rec store.FindingRecord) (domain.Finding, error) {
	level, err := domain.ParseRiskLevel(rec.Level)
	if err != nil {
		return domain.Finding{}, fmt.Errorf("finding %s/%s: %w", rec.RunID, rec.IdentityID, err)
	}
	f := domain.Finding{
		IdentityID:   rec.IdentityID,
		IdentityName: rec.IdentityName,
		IdentityType: domain.IdentityType(rec.IdentityType),
		Platform:     rec.Platform,
		Score:        rec.Score,
		Level:        level,
		EvaluatedAt:  rec.EvaluatedAt,
	}
	if rec.FactorsJSON != "" {
		if err := json.Unmarshal([]byte(rec.FactorsJSON), &f.Factors); err != nil {
			return domain.Finding{}, fmt.Errorf("unmarshal factors for %s/%s: %w", rec.RunID, rec.IdentityID, err)
		}
	}
	return f, nil
}

func MapDomainAlertStateToStore(s domain.AlertState) store.AlertStateRecord {
	return store.AlertStateRecord{
		IdentityID:  s.IdentityID,
		Level:       s.Level.String(),
		LastAlerted: s.LastAlerted,
	}
}

func MapStoreAlertStateToDomain(rec store.AlertStateRecord) (domain.AlertState, error) {
	level, err := domain.ParseRiskLevel(rec.Level)
	if err != nil {
		return domain.AlertState{}, fmt.Errorf("alert state %s: %w", rec.IdentityID, err)
	}
	return domain.AlertState{
		IdentityID:  rec.IdentityID,
		Level:       level,
		LastAlerted: rec.LastAlerted,
	}, nil
}

func MapStoreRunToApi(rec store.RunRecord) api.ReviewRun {
	return api.ReviewRun{
		RunId:         rec.RunID,
		Profile:       rec.Profile,
		GeneratedAt:   rec.GeneratedAt,
		FindingCount:  rec.FindingCount,
		HighCount:     rec.HighCount,
		CriticalCount: rec.CriticalCount,
	}
}
