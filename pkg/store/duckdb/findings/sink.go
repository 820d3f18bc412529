package findings

import (
	"context"

	"github.com/google/uuid"

	"github.com/de-tools/access-atlas/pkg/adapters"
	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/models/store"
)

// Sink persists each dispatched result as a new run. Run history lives here,
// the engine itself stays stateless.
type Sink struct {
	store   Store
	profile string
}

func NewSink(store Store, profile string) *Sink {
	return &Sink{store: store, profile: profile}
}

func (s *Sink) Write(ctx context.Context, result domain.ReviewResult) error {
	runID := uuid.NewString()

	records := make([]store.FindingRecord, 0, len(result.Findings))
	for _, f := range result.Findings {
		rec, err := adapters.MapDomainFindingToStore(runID, f)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	counts := result.CountByLevel()
	run := store.RunRecord{
		RunID:         runID,
		Profile:       s.profile,
		GeneratedAt:   result.GeneratedAt,
		FindingCount:  len(result.Findings),
		HighCount:     counts[domain.RiskLevelHigh],
		CriticalCount: counts[domain.RiskLevelCritical],
	}

	return s.store.SaveRun(ctx, run, records)
}
