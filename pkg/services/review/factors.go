package review

import (
	"fmt"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

const (
	FactorUnusedIdentity       = "unused_identity"
	FactorAdministrativePolicy = "administrative_policy"
	FactorBroadPolicy          = "broad_policy"
)

// Weights applied when the config does not override a factor.
const (
	DefaultUnusedIdentityWeight       = 75
	DefaultAdministrativePolicyWeight = 60
	DefaultBroadPolicyWeight          = 30
)

// BuiltinFactors returns the factors every review ships with.
func BuiltinFactors() []Factor {
	return []Factor{
		{
			Name:        FactorUnusedIdentity,
			Description: "identity has not authenticated within the staleness threshold",
			Evaluate:    evaluateUnusedIdentity,
		},
		{
			Name:        FactorAdministrativePolicy,
			Description: "an attached policy grants every action on every resource",
			Evaluate:    evaluateAdministrativePolicy,
		},
		{
			Name:        FactorBroadPolicy,
			Description: "an attached policy grants a service-wide or resource-wide scope",
			Evaluate:    evaluateBroadPolicy,
		},
	}
}

func evaluateUnusedIdentity(fctx FactorContext) (*domain.RiskFactorResult, error) {
	if !Unused(fctx.Snapshot.LastActivity, fctx.Config.StalenessThreshold(), fctx.Now) {
		return nil, nil
	}
	return &domain.RiskFactorResult{
		Factor:   FactorUnusedIdentity,
		Weight:   fctx.Config.WeightFor(FactorUnusedIdentity, DefaultUnusedIdentityWeight),
		Evidence: idleEvidence(fctx.Snapshot, fctx.Config.StalenessThresholdDays, fctx.Now),
	}, nil
}

func evaluateAdministrativePolicy(fctx FactorContext) (*domain.RiskFactorResult, error) {
	class, doc := ClassifyAll(fctx.Snapshot.Policies)
	if class != domain.PermissivenessAdministrative {
		return nil, nil
	}
	return &domain.RiskFactorResult{
		Factor:   FactorAdministrativePolicy,
		Weight:   fctx.Config.WeightFor(FactorAdministrativePolicy, DefaultAdministrativePolicyWeight),
		Evidence: fmt.Sprintf("policy %q allows every action on every resource", doc),
	}, nil
}

// evaluateBroadPolicy triggers only when the identity tops out at broad.
// Administrative identities are covered by the administrative factor alone.
func evaluateBroadPolicy(fctx FactorContext) (*domain.RiskFactorResult, error) {
	class, doc := ClassifyAll(fctx.Snapshot.Policies)
	if class != domain.PermissivenessBroad {
		return nil, nil
	}
	return &domain.RiskFactorResult{
		Factor:   FactorBroadPolicy,
		Weight:   fctx.Config.WeightFor(FactorBroadPolicy, DefaultBroadPolicyWeight),
		Evidence: fmt.Sprintf("policy %q grants a service-wide or resource-wide scope", doc),
	}, nil
}
