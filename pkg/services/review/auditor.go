package review

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/source"
	"github.com/de-tools/access-atlas/pkg/store/duckdb/findings"
)

// Auditor ties the profile registry, the source providers and the review
// engine together for callers that address reviews by profile name.
type Auditor interface {
	ListProfiles(ctx context.Context) ([]registry.Profile, error)
	ReviewProfile(ctx context.Context, name string, overrides *Overrides) (domain.ReviewResult, error)
}

// Overrides tweaks the configured review for a single run. Nil fields keep
// the configured values.
type Overrides struct {
	StalenessThresholdDays *int
	EnabledFactors         []string
}

type profileAuditor struct {
	profiles registry.ProfileRegistry
	sources  source.Registry
	service  *Service
	cfg      domain.ReviewConfig
	history  findings.Store
}

// NewAuditor wires a profile-addressed review surface. history may be nil,
// which disables run persistence.
func NewAuditor(
	profiles registry.ProfileRegistry,
	sources source.Registry,
	svc *Service,
	cfg domain.ReviewConfig,
	history findings.Store,
) Auditor {
	return &profileAuditor{
		profiles: profiles,
		sources:  sources,
		service:  svc,
		cfg:      cfg,
		history:  history,
	}
}

func (a *profileAuditor) ListProfiles(_ context.Context) ([]registry.Profile, error) {
	return a.profiles.GetProfiles()
}

func (a *profileAuditor) ReviewProfile(ctx context.Context, name string, overrides *Overrides) (domain.ReviewResult, error) {
	logger := zerolog.Ctx(ctx)

	profile, err := a.profiles.GetProfile(name)
	if err != nil {
		return domain.ReviewResult{}, fmt.Errorf("%w: profile %s", domain.ErrNotFound, name)
	}

	provider, err := a.sources.Create(ctx, profile)
	if err != nil {
		return domain.ReviewResult{}, fmt.Errorf("create provider for profile %s: %w", name, err)
	}

	cfg := a.cfg
	if overrides != nil {
		if overrides.StalenessThresholdDays != nil {
			cfg.StalenessThresholdDays = *overrides.StalenessThresholdDays
		}
		if len(overrides.EnabledFactors) > 0 {
			cfg.EnabledFactors = overrides.EnabledFactors
		}
	}

	result, err := a.service.RunFromSource(ctx, provider, cfg)
	if err != nil {
		return domain.ReviewResult{}, err
	}

	// Run history is best effort, a broken store never fails the review.
	if a.history != nil {
		if err := findings.NewSink(a.history, profile.Name).Write(ctx, result); err != nil {
			logger.Error().Err(err).Str("profile", name).Msg("failed to persist review run")
		}
	}

	return result, nil
}
