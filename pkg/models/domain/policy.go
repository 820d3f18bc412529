package domain

type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Wildcard matches every action or resource in a statement.
const Wildcard = "*"

type Statement struct {
	Effect    Effect
	Actions   []string // "s3:GetObject", "s3:*", "*"
	Resources []string // ARNs or platform resource names, "*"
}

type PermissionDocument struct {
	Name       string
	Statements []Statement
}

type Permissiveness int

const (
	PermissivenessNone Permissiveness = iota
	PermissivenessBroad
	PermissivenessAdministrative
)

func (p Permissiveness) String() string {
	switch p {
	case PermissivenessAdministrative:
		return "administrative"
	case PermissivenessBroad:
		return "broad"
	default:
		return "none"
	}
}
