package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

const defaultWorkers = 4

// Engine evaluates identity snapshots against the enabled risk factors.
type Engine struct {
	cfg     domain.ReviewConfig
	factors []Factor
}

// NewEngine validates the configuration and resolves the enabled factors.
func NewEngine(reg Registry, cfg domain.ReviewConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factors, err := reg.Resolve(cfg.EnabledFactors)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, factors: factors}, nil
}

// EvaluateIdentity runs every enabled factor against one identity. Factor
// failures and panics degrade to warnings, so one broken factor lowers the
// score instead of killing the run.
func (e *Engine) EvaluateIdentity(snap domain.IdentitySnapshot, now time.Time) (domain.Finding, []domain.Warning) {
	fctx := FactorContext{Snapshot: snap, Config: e.cfg, Now: now}

	var results []domain.RiskFactorResult
	var warnings []domain.Warning
	for _, f := range e.factors {
		res, err := evaluateSafely(f, fctx)
		if err != nil {
			warnings = append(warnings, domain.Warning{
				Stage:   domain.WarningStageFactor,
				Subject: f.Name,
				Detail:  fmt.Sprintf("identity %s: %v", snap.ID, err),
			})
			continue
		}
		if res != nil {
			results = append(results, *res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Weight != results[j].Weight {
			return results[i].Weight > results[j].Weight
		}
		return results[i].Factor < results[j].Factor
	})

	raw := 0
	for _, r := range results {
		raw += r.Weight
	}
	score := domain.ClampScore(raw)

	return domain.Finding{
		IdentityID:   snap.ID,
		IdentityName: snap.Name,
		IdentityType: snap.Type,
		Platform:     snap.Platform,
		Score:        score,
		Level:        domain.LevelForScore(score, e.cfg.RiskBands),
		Factors:      results,
		EvaluatedAt:  now,
	}, warnings
}

func evaluateSafely(f Factor, fctx FactorContext) (res *domain.RiskFactorResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("factor panicked: %v", r)
		}
	}()
	return f.Evaluate(fctx)
}

// EvaluateAll fans identities out across a bounded worker pool. Results keep
// input order regardless of scheduling, so reruns are reproducible.
func (e *Engine) EvaluateAll(ctx context.Context, snaps []domain.IdentitySnapshot, now time.Time) ([]domain.Finding, []domain.Warning, error) {
	findings := make([]domain.Finding, len(snaps))
	perIdentity := make([][]domain.Warning, len(snaps))

	workers := e.cfg.Workers
	if workers == 0 {
		workers = defaultWorkers
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, snap := range snaps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			findings[i], perIdentity[i] = e.EvaluateIdentity(snap, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []domain.Warning
	for _, w := range perIdentity {
		warnings = append(warnings, w...)
	}
	return findings, warnings, nil
}
