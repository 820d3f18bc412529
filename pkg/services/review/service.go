package review

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/services/source"
)

// Request is one review run over a set of identity snapshots.
type Request struct {
	Snapshots []domain.IdentitySnapshot
	Config    domain.ReviewConfig
	// RunTime stamps every finding in the run. Zero means "now".
	RunTime time.Time
}

// Service orchestrates review runs against a factor registry.
type Service struct {
	registry Registry
	now      func() time.Time
}

func NewService(reg Registry) *Service {
	return &Service{registry: reg, now: time.Now}
}

// Run screens the snapshots, evaluates every usable one, and aggregates the
// findings. Identity-level problems degrade to warnings; only an invalid
// configuration or a cancelled context aborts the run.
func (s *Service) Run(ctx context.Context, req Request) (domain.ReviewResult, error) {
	engine, err := NewEngine(s.registry, req.Config)
	if err != nil {
		return domain.ReviewResult{}, err
	}

	runTime := req.RunTime
	if runTime.IsZero() {
		runTime = s.now().UTC()
	}

	snaps, warnings := screenSnapshots(ctx, req.Snapshots)

	findings, factorWarnings, err := engine.EvaluateAll(ctx, snaps, runTime)
	if err != nil {
		return domain.ReviewResult{}, err
	}
	warnings = append(warnings, factorWarnings...)

	return Aggregate(findings, warnings, runTime), nil
}

// RunFromSource pulls the identity snapshot from a provider and reviews it.
func (s *Service) RunFromSource(ctx context.Context, provider source.Provider, cfg domain.ReviewConfig) (domain.ReviewResult, error) {
	snaps, err := provider.FetchIdentities(ctx)
	if err != nil {
		return domain.ReviewResult{}, fmt.Errorf("%w: %s: %v", domain.ErrSource, provider.Platform(), err)
	}
	return s.Run(ctx, Request{Snapshots: snaps, Config: cfg})
}

// screenSnapshots drops snapshots that cannot be evaluated and surfaces
// malformed policy documents as warnings.
func screenSnapshots(ctx context.Context, snaps []domain.IdentitySnapshot) ([]domain.IdentitySnapshot, []domain.Warning) {
	logger := zerolog.Ctx(ctx)

	usable := make([]domain.IdentitySnapshot, 0, len(snaps))
	var warnings []domain.Warning
	for _, snap := range snaps {
		if err := validateSnapshot(snap); err != nil {
			logger.Warn().Err(err).Str("identity", snap.ID).Msg("skipping identity snapshot")
			subject := snap.ID
			if subject == "" {
				subject = snap.Name
			}
			warnings = append(warnings, domain.Warning{
				Stage:   domain.WarningStageSource,
				Subject: subject,
				Detail:  fmt.Sprintf("snapshot skipped: %v", err),
			})
			continue
		}
		for _, doc := range snap.Policies {
			warnings = append(warnings, ValidateDocument(doc)...)
		}
		usable = append(usable, snap)
	}
	return usable, warnings
}

func validateSnapshot(snap domain.IdentitySnapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("identity has no ID")
	}
	switch snap.Type {
	case domain.IdentityTypeUser, domain.IdentityTypeRole:
	default:
		return fmt.Errorf("identity %s has unknown type %q", snap.ID, snap.Type)
	}
	return nil
}
