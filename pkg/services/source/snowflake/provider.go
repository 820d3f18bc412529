package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/source"
)

const Platform = "snowflake"

// adminRoles are the account level roles that grant unrestricted control.
var adminRoles = map[string]struct{}{
	"ACCOUNTADMIN":  {},
	"SECURITYADMIN": {},
	"ORGADMIN":      {},
}

// Provider reads users and their role grants from the account_usage share.
// Snowflake has no policy documents, so granted roles are rendered as
// statements instead.
type Provider struct {
	db *sql.DB
}

// Factory builds the Snowflake provider from a connection profile.
// Recognized profile keys: account, user, password, warehouse, role.
func Factory(_ context.Context, profile registry.Profile) (source.Provider, error) {
	account := profile.Get("account")
	user := profile.Get("user")
	password := profile.Get("password")
	if account == "" || user == "" || password == "" {
		return nil, fmt.Errorf("profile %q is missing account, user or password", profile.Name)
	}

	dsn, err := sf.DSN(&sf.Config{
		Account:   account,
		User:      user,
		Password:  password,
		Warehouse: profile.Get("warehouse"),
		Role:      profile.Get("role"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to snowflake: %w", err)
	}

	return NewProviderWithDB(db), nil
}

func NewProviderWithDB(db *sql.DB) *Provider {
	return &Provider{db: db}
}

func (p *Provider) Platform() string { return Platform }

func (p *Provider) FetchIdentities(ctx context.Context) ([]domain.IdentitySnapshot, error) {
	grants, err := p.fetchGrants(ctx)
	if err != nil {
		return nil, err
	}
	return p.fetchUsers(ctx, grants)
}

func (p *Provider) fetchUsers(ctx context.Context, grants map[string][]string) ([]domain.IdentitySnapshot, error) {
	query := `
        SELECT
            user_id,
            name,
            created_on,
            last_success_login,
            disabled
        FROM
            snowflake.account_usage.users
        WHERE
            deleted_on IS NULL
        `

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("users query failed: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.IdentitySnapshot
	for rows.Next() {
		var (
			userID    int64
			name      string
			createdOn time.Time
			lastLogin sql.NullTime
			disabled  sql.NullString
		)
		if err := rows.Scan(&userID, &name, &createdOn, &lastLogin, &disabled); err != nil {
			return nil, err
		}

		snap := domain.IdentitySnapshot{
			ID:        strconv.FormatInt(userID, 10),
			Name:      name,
			Type:      domain.IdentityTypeUser,
			Platform:  Platform,
			CreatedAt: createdOn,
			Policies:  roleDocuments(grants[name]),
			Metadata:  map[string]string{},
		}
		if disabled.Valid {
			snap.Metadata["disabled"] = strings.ToLower(disabled.String)
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			snap.LastActivity = &t
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users rows failed: %w", err)
	}
	return snapshots, nil
}

func (p *Provider) fetchGrants(ctx context.Context) (map[string][]string, error) {
	query := `
        SELECT
            grantee_name,
            role
        FROM
            snowflake.account_usage.grants_to_users
        WHERE
            deleted_on IS NULL
        `

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("grants query failed: %w", err)
	}
	defer rows.Close()

	grants := make(map[string][]string)
	for rows.Next() {
		var grantee, role string
		if err := rows.Scan(&grantee, &role); err != nil {
			return nil, err
		}
		grants[grantee] = append(grants[grantee], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grants rows failed: %w", err)
	}
	return grants, nil
}

// roleDocuments renders granted roles as one permission document. The
// administrative account roles carry an unrestricted statement, every other
// role a usage statement naming the role.
func roleDocuments(roles []string) []domain.PermissionDocument {
	if len(roles) == 0 {
		return nil
	}

	statements := make([]domain.Statement, 0, len(roles))
	for _, role := range roles {
		if _, ok := adminRoles[strings.ToUpper(role)]; ok {
			statements = append(statements, domain.Statement{
				Effect:    domain.EffectAllow,
				Actions:   []string{domain.Wildcard},
				Resources: []string{domain.Wildcard},
			})
			continue
		}
		statements = append(statements, domain.Statement{
			Effect:    domain.EffectAllow,
			Actions:   []string{"role:usage"},
			Resources: []string{role},
		})
	}

	return []domain.PermissionDocument{{Name: "granted_roles", Statements: statements}}
}
