package domain

import "time"

type IdentityType string

const (
	IdentityTypeUser IdentityType = "user"
	IdentityTypeRole IdentityType = "role"
)

type IdentitySnapshot struct {
	ID           string
	Name         string
	Type         IdentityType
	Platform     string // aws, databricks, snowflake
	CreatedAt    time.Time
	LastActivity *time.Time // nil when the identity never authenticated
	Policies     []PermissionDocument
	Metadata     map[string]string // ARN, AccountID, Region
}
