package databricks

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/iam"
	_ "github.com/databricks/databricks-sql-go"
	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/source"
	"github.com/de-tools/access-atlas/pkg/store/databrickssql/activity"
)

const Platform = "databricks"

const (
	accountAdminRole = "account_admin"
	adminsGroup      = "admins"
)

// Provider reads workspace users and service principals over SCIM. Grants are
// synthesized from SCIM roles, group memberships and entitlements, since the
// workspace API does not expose them as policy documents.
type Provider struct {
	client   *databricks.WorkspaceClient
	host     string
	activity activity.Store
}

// Factory builds the Databricks provider from a connection profile.
// Recognized profile keys: host, token and an optional activity_dsn pointing
// at a SQL warehouse with access to the system.access.audit table.
func Factory(ctx context.Context, profile registry.Profile) (source.Provider, error) {
	host := profile.Get("host")
	token := profile.Get("token")
	if host == "" || token == "" {
		return nil, fmt.Errorf("profile %q is missing host or token", profile.Name)
	}

	client, err := databricks.NewWorkspaceClient(&databricks.Config{
		Host:  host,
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace client: %w", err)
	}

	var activityStore activity.Store
	if dsn := profile.Get("activity_dsn"); dsn != "" {
		db, err := sql.Open("databricks", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to activity warehouse: %w", err)
		}
		activityStore = activity.NewStore(db)
	}

	return NewProvider(client, host, activityStore), nil
}

func NewProvider(client *databricks.WorkspaceClient, host string, activityStore activity.Store) *Provider {
	return &Provider{
		client:   client,
		host:     host,
		activity: activityStore,
	}
}

func (p *Provider) Platform() string { return Platform }

// FetchIdentities lists every workspace user and service principal. When no
// activity store is configured every identity is reported without activity,
// which the staleness factor treats as never used.
func (p *Provider) FetchIdentities(ctx context.Context) ([]domain.IdentitySnapshot, error) {
	logger := zerolog.Ctx(ctx)

	lastSeen := map[string]time.Time{}
	if p.activity != nil {
		seen, err := p.activity.LastActivities(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read audit activity, reporting identities without it")
		} else {
			lastSeen = seen
		}
	}

	users, err := p.client.Users.ListAll(ctx, iam.ListUsersRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	principals, err := p.client.ServicePrincipals.ListAll(ctx, iam.ListServicePrincipalsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list service principals: %w", err)
	}

	snapshots := make([]domain.IdentitySnapshot, 0, len(users)+len(principals))
	for _, u := range users {
		snapshots = append(snapshots, p.mapUser(u, lastSeen))
	}
	for _, sp := range principals {
		snapshots = append(snapshots, p.mapServicePrincipal(sp, lastSeen))
	}
	return snapshots, nil
}

// mapUser keeps CreatedAt zero, SCIM does not expose creation time.
func (p *Provider) mapUser(u iam.User, lastSeen map[string]time.Time) domain.IdentitySnapshot {
	snap := domain.IdentitySnapshot{
		ID:       u.Id,
		Name:     u.UserName,
		Type:     domain.IdentityTypeUser,
		Platform: Platform,
		Policies: p.grantDocuments(u.Roles, u.Groups, u.Entitlements),
		Metadata: map[string]string{
			"display_name": u.DisplayName,
			"active":       strconv.FormatBool(u.Active),
		},
	}
	if seen, ok := lastSeen[u.UserName]; ok {
		t := seen
		snap.LastActivity = &t
	}
	return snap
}

// mapServicePrincipal reports principals as roles, they are assumable
// machine identities rather than people.
func (p *Provider) mapServicePrincipal(sp iam.ServicePrincipal, lastSeen map[string]time.Time) domain.IdentitySnapshot {
	snap := domain.IdentitySnapshot{
		ID:       sp.Id,
		Name:     sp.DisplayName,
		Type:     domain.IdentityTypeRole,
		Platform: Platform,
		Policies: p.grantDocuments(sp.Roles, sp.Groups, sp.Entitlements),
		Metadata: map[string]string{
			"kind":           "service_principal",
			"application_id": sp.ApplicationId,
			"active":         strconv.FormatBool(sp.Active),
		},
	}
	if seen, ok := lastSeen[sp.ApplicationId]; ok {
		t := seen
		snap.LastActivity = &t
	}
	return snap
}

// grantDocuments renders SCIM grants as permission documents. Admins get an
// unrestricted allow statement, entitlements become one allow statement each
// scoped to the workspace host.
func (p *Provider) grantDocuments(roles, groups, entitlements []iam.ComplexValue) []domain.PermissionDocument {
	var docs []domain.PermissionDocument

	if isWorkspaceAdmin(roles, groups) {
		docs = append(docs, domain.PermissionDocument{
			Name: "workspace_admin",
			Statements: []domain.Statement{
				{
					Effect:    domain.EffectAllow,
					Actions:   []string{domain.Wildcard},
					Resources: []string{domain.Wildcard},
				},
			},
		})
	}

	if len(entitlements) > 0 {
		statements := make([]domain.Statement, 0, len(entitlements))
		for _, e := range entitlements {
			statements = append(statements, domain.Statement{
				Effect:    domain.EffectAllow,
				Actions:   []string{e.Value},
				Resources: []string{p.host},
			})
		}
		docs = append(docs, domain.PermissionDocument{
			Name:       "entitlements",
			Statements: statements,
		})
	}

	return docs
}

func isWorkspaceAdmin(roles, groups []iam.ComplexValue) bool {
	for _, r := range roles {
		if r.Value == accountAdminRole {
			return true
		}
	}
	for _, g := range groups {
		if g.Display == adminsGroup {
			return true
		}
	}
	return false
}
