package review

import (
	"fmt"
	"strings"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// ClassifyDocument derives the declared breadth of a permission document.
// Only allow statements raise the classification; deny statements and
// malformed statements are ignored here. Classification looks at what the
// document declares, not at the permissions that survive policy evaluation.
func ClassifyDocument(doc domain.PermissionDocument) domain.Permissiveness {
	class := domain.PermissivenessNone
	for _, st := range doc.Statements {
		if validateStatement(st) != nil || st.Effect != domain.EffectAllow {
			continue
		}
		allActions := wildcardSet(st.Actions)
		allResources := wildcardSet(st.Resources)
		switch {
		case allActions && allResources:
			return domain.PermissivenessAdministrative
		case allActions, allResources, hasServiceWildcard(st.Actions):
			class = domain.PermissivenessBroad
		}
	}
	return class
}

// ClassifyAll returns the highest classification across the documents and the
// name of the first document that reached it.
func ClassifyAll(docs []domain.PermissionDocument) (domain.Permissiveness, string) {
	top := domain.PermissivenessNone
	name := ""
	for _, doc := range docs {
		if c := ClassifyDocument(doc); c > top {
			top = c
			name = doc.Name
			if top == domain.PermissivenessAdministrative {
				break
			}
		}
	}
	return top, name
}

// ValidateDocument reports malformed statements. Offending statements are
// skipped during classification instead of failing the identity.
func ValidateDocument(doc domain.PermissionDocument) []domain.Warning {
	var warnings []domain.Warning
	for i, st := range doc.Statements {
		if err := validateStatement(st); err != nil {
			warnings = append(warnings, domain.Warning{
				Stage:   domain.WarningStagePolicy,
				Subject: doc.Name,
				Detail:  fmt.Sprintf("statement %d skipped: %v", i, err),
			})
		}
	}
	return warnings
}

func validateStatement(st domain.Statement) error {
	switch st.Effect {
	case domain.EffectAllow, domain.EffectDeny:
	default:
		return fmt.Errorf("unknown effect %q", st.Effect)
	}
	if len(st.Actions) == 0 {
		return fmt.Errorf("statement has no actions")
	}
	if len(st.Resources) == 0 {
		return fmt.Errorf("statement has no resources")
	}
	return nil
}

// wildcardSet reports whether a set matches everything.
func wildcardSet(vals []string) bool {
	for _, v := range vals {
		if v == domain.Wildcard {
			return true
		}
	}
	return false
}

// hasServiceWildcard detects actions like "s3:*" that grant an entire
// service's action namespace.
func hasServiceWildcard(actions []string) bool {
	for _, a := range actions {
		if a == domain.Wildcard {
			continue
		}
		if idx := strings.IndexByte(a, ':'); idx > 0 && a[idx+1:] == domain.Wildcard {
			return true
		}
	}
	return false
}
