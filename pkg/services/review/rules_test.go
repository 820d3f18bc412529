package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeRules(t, `
factors:
  - name: pass_role
    weight: 40
    action_pattern: "iam:PassRole"
    description: identity can hand its permissions to another principal
  - name: key_management
    weight: 25
    action_pattern: "kms:*"
`)

	rs, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rs.Factors, 2)
	assert.Equal(t, "pass_role", rs.Factors[0].Name)
	assert.Equal(t, 40, rs.Factors[0].Weight)
}

func TestLoadRules_Empty(t *testing.T) {
	rs, err := LoadRules("")
	require.NoError(t, err)
	assert.Empty(t, rs.Factors)
}

func TestLoadRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "factors:\n  - weight: 10\n    action_pattern: \"iam:*\"\n"},
		{"missing pattern", "factors:\n  - name: x\n    weight: 10\n"},
		{"negative weight", "factors:\n  - name: x\n    weight: -1\n    action_pattern: \"iam:*\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.content))
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}
}

func TestPatternRule_Factor(t *testing.T) {
	rule := PatternRule{Name: "pass_role", Weight: 40, ActionPattern: "iam:PassRole"}
	factor := rule.Factor()
	cfg := DefaultConfig()

	snapshotWith := func(actions ...string) domain.IdentitySnapshot {
		return domain.IdentitySnapshot{
			ID: "U1", Type: domain.IdentityTypeUser,
			Policies: []domain.PermissionDocument{
				{Name: "doc", Statements: []domain.Statement{
					{Effect: domain.EffectAllow, Actions: actions, Resources: []string{"*"}},
				}},
			},
		}
	}

	t.Run("exact action triggers", func(t *testing.T) {
		res, err := factor.Evaluate(FactorContext{Snapshot: snapshotWith("iam:PassRole"), Config: cfg})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 40, res.Weight)
		assert.Contains(t, res.Evidence, "iam:PassRole")
	})

	t.Run("service wildcard action covers the pattern", func(t *testing.T) {
		res, err := factor.Evaluate(FactorContext{Snapshot: snapshotWith("iam:*"), Config: cfg})
		require.NoError(t, err)
		assert.NotNil(t, res)
	})

	t.Run("bare wildcard action covers the pattern", func(t *testing.T) {
		res, err := factor.Evaluate(FactorContext{Snapshot: snapshotWith("*"), Config: cfg})
		require.NoError(t, err)
		assert.NotNil(t, res)
	})

	t.Run("unrelated action does not trigger", func(t *testing.T) {
		res, err := factor.Evaluate(FactorContext{Snapshot: snapshotWith("s3:GetObject"), Config: cfg})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("deny statements are ignored", func(t *testing.T) {
		snap := domain.IdentitySnapshot{
			ID: "U1", Type: domain.IdentityTypeUser,
			Policies: []domain.PermissionDocument{
				{Name: "doc", Statements: []domain.Statement{
					{Effect: domain.EffectDeny, Actions: []string{"iam:PassRole"}, Resources: []string{"*"}},
				}},
			},
		}
		res, err := factor.Evaluate(FactorContext{Snapshot: snap, Config: cfg})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("config weight override applies", func(t *testing.T) {
		override := DefaultConfig()
		override.FactorWeights["pass_role"] = 55
		res, err := factor.Evaluate(FactorContext{Snapshot: snapshotWith("iam:PassRole"), Config: override})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 55, res.Weight)
	})
}

func TestRuleSet_Register(t *testing.T) {
	reg, err := NewRegistry(BuiltinFactors()...)
	require.NoError(t, err)

	rs := &RuleSet{Factors: []PatternRule{
		{Name: "pass_role", Weight: 40, ActionPattern: "iam:PassRole"},
	}}
	require.NoError(t, rs.Register(reg))
	assert.Len(t, reg.Factors(), 4)

	clash := &RuleSet{Factors: []PatternRule{
		{Name: FactorUnusedIdentity, Weight: 10, ActionPattern: "iam:*"},
	}}
	assert.Error(t, clash.Register(reg))
}

func TestPatternRule_WildcardPattern(t *testing.T) {
	rule := PatternRule{Name: "key_management", Weight: 25, ActionPattern: "kms:*"}
	factor := rule.Factor()
	cfg := DefaultConfig()

	snap := domain.IdentitySnapshot{
		ID: "U1", Type: domain.IdentityTypeUser,
		Policies: []domain.PermissionDocument{
			{Name: "keys", Statements: []domain.Statement{
				{Effect: domain.EffectAllow, Actions: []string{"kms:Decrypt"}, Resources: []string{"arn:aws:kms:us-east-1:123:key/k1"}},
			}},
		},
	}

	res, err := factor.Evaluate(FactorContext{Snapshot: snap, Config: cfg})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Evidence, "kms:Decrypt")
}
