package review

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// PatternRule flags identities whose policies allow an action matching a
// pattern, e.g. "iam:PassRole" or "kms:*". Rules become ordinary factors and
// can be weighted and enabled like the built-ins.
type PatternRule struct {
	Name          string `yaml:"name"`
	Weight        int    `yaml:"weight"`
	ActionPattern string `yaml:"action_pattern"`
	Description   string `yaml:"description"`
}

type RuleSet struct {
	Factors []PatternRule `yaml:"factors"`
}

// LoadRules reads custom factor rules from a YAML file. An empty path returns
// an empty set.
func LoadRules(rulesPath string) (*RuleSet, error) {
	if rulesPath == "" {
		return &RuleSet{}, nil
	}

	data, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading rules %s: %v", domain.ErrConfig, rulesPath, err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("%w: parsing rules %s: %v", domain.ErrConfig, rulesPath, err)
	}

	for i, rule := range rs.Factors {
		if rule.Name == "" {
			return nil, fmt.Errorf("%w: rule %d has no name", domain.ErrConfig, i)
		}
		if rule.ActionPattern == "" {
			return nil, fmt.Errorf("%w: rule %q has no action pattern", domain.ErrConfig, rule.Name)
		}
		if rule.Weight < 0 {
			return nil, fmt.Errorf("%w: rule %q has negative weight %d", domain.ErrConfig, rule.Name, rule.Weight)
		}
	}
	return &rs, nil
}

// Register adds every rule to the registry as a factor.
func (rs *RuleSet) Register(reg Registry) error {
	for _, rule := range rs.Factors {
		if err := reg.Register(rule.Factor()); err != nil {
			return err
		}
	}
	return nil
}

// Factor builds the registry entry for one rule.
func (r PatternRule) Factor() Factor {
	rule := r
	return Factor{
		Name:        rule.Name,
		Description: rule.Description,
		Evaluate: func(fctx FactorContext) (*domain.RiskFactorResult, error) {
			doc, action, ok := matchAction(fctx.Snapshot.Policies, rule.ActionPattern)
			if !ok {
				return nil, nil
			}
			return &domain.RiskFactorResult{
				Factor:   rule.Name,
				Weight:   fctx.Config.WeightFor(rule.Name, rule.Weight),
				Evidence: fmt.Sprintf("policy %q allows %s (matches %s)", doc, action, rule.ActionPattern),
			}, nil
		},
	}
}

// matchAction scans allow statements for an action matching the pattern.
func matchAction(docs []domain.PermissionDocument, pattern string) (doc, action string, ok bool) {
	for _, d := range docs {
		for _, st := range d.Statements {
			if validateStatement(st) != nil || st.Effect != domain.EffectAllow {
				continue
			}
			for _, a := range st.Actions {
				if actionMatches(pattern, a) {
					return d.Name, a, true
				}
			}
		}
	}
	return "", "", false
}

// actionMatches applies shell-style matching between a rule pattern and a
// declared action. Actions that are themselves wildcards cover the pattern.
func actionMatches(pattern, action string) bool {
	if action == domain.Wildcard {
		return true
	}
	if ok, err := path.Match(pattern, action); err == nil && ok {
		return true
	}
	// A declared "svc:*" covers every pattern under the same service.
	if strings.HasSuffix(action, ":"+domain.Wildcard) {
		return strings.HasPrefix(pattern, strings.TrimSuffix(action, domain.Wildcard))
	}
	return false
}
