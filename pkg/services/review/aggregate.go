package review

import (
	"fmt"
	"sort"
	"time"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// Aggregate merges per-identity findings into a deterministic review result.
// Duplicate identity IDs collapse to the most recently evaluated finding;
// when timestamps tie, the finding appearing later in the input wins.
func Aggregate(findings []domain.Finding, warnings []domain.Warning, generatedAt time.Time) domain.ReviewResult {
	merged := make(map[string]domain.Finding, len(findings))
	var order []string
	var dupes []domain.Warning

	for _, f := range findings {
		cur, exists := merged[f.IdentityID]
		if !exists {
			merged[f.IdentityID] = f
			order = append(order, f.IdentityID)
			continue
		}
		dupes = append(dupes, domain.Warning{
			Stage:   domain.WarningStageAggregate,
			Subject: f.IdentityID,
			Detail:  fmt.Sprintf("duplicate finding for identity %s, keeping the most recent evaluation", f.IdentityID),
		})
		if !f.EvaluatedAt.Before(cur.EvaluatedAt) {
			merged[f.IdentityID] = f
		}
	}

	out := make([]domain.Finding, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].IdentityID < out[j].IdentityID
	})

	res := domain.ReviewResult{
		GeneratedAt: generatedAt,
		Findings:    out,
	}
	res.Warnings = append(res.Warnings, warnings...)
	res.Warnings = append(res.Warnings, dupes...)
	return res
}
