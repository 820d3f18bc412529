package awsiam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// policyDocument mirrors the IAM policy JSON grammar. Statement, Action, and
// Resource may each be a single value or a list on the wire.
type policyDocument struct {
	Version   string        `json:"Version"`
	Statement statementList `json:"Statement"`
}

type policyStatement struct {
	Effect      string    `json:"Effect"`
	Action      stringSet `json:"Action"`
	NotAction   stringSet `json:"NotAction"`
	Resource    stringSet `json:"Resource"`
	NotResource stringSet `json:"NotResource"`
}

type statementList []policyStatement

func (s *statementList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []policyStatement
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*s = many
		return nil
	}
	var one policyStatement
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*s = statementList{one}
	return nil
}

type stringSet []string

func (s *stringSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []string
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*s = many
		return nil
	}
	var one string
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*s = stringSet{one}
	return nil
}

// DecodePolicyDocument parses the URL-encoded JSON document the IAM APIs
// return into a permission document.
func DecodePolicyDocument(name, raw string) (domain.PermissionDocument, error) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return domain.PermissionDocument{}, fmt.Errorf("decode policy %s: %w", name, err)
	}

	var doc policyDocument
	if err := json.Unmarshal([]byte(decoded), &doc); err != nil {
		return domain.PermissionDocument{}, fmt.Errorf("parse policy %s: %w", name, err)
	}

	out := domain.PermissionDocument{
		Name:       name,
		Statements: make([]domain.Statement, 0, len(doc.Statement)),
	}
	for _, st := range doc.Statement {
		out.Statements = append(out.Statements, mapStatement(st))
	}
	return out, nil
}

// mapStatement lowers one wire statement into the domain model. NotAction and
// NotResource grant everything outside the listed set, so declared breadth
// treats them as wildcards.
func mapStatement(st policyStatement) domain.Statement {
	actions := []string(st.Action)
	if len(actions) == 0 && len(st.NotAction) > 0 {
		actions = []string{domain.Wildcard}
	}
	resources := []string(st.Resource)
	if len(resources) == 0 && len(st.NotResource) > 0 {
		resources = []string{domain.Wildcard}
	}
	return domain.Statement{
		Effect:    mapEffect(st.Effect),
		Actions:   actions,
		Resources: resources,
	}
}

// mapEffect normalizes Allow/Deny. Unknown effects are carried through as-is
// so snapshot screening can flag the statement instead of losing it silently.
func mapEffect(effect string) domain.Effect {
	switch strings.ToLower(effect) {
	case "allow":
		return domain.EffectAllow
	case "deny":
		return domain.EffectDeny
	default:
		return domain.Effect(effect)
	}
}
