package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/source"
)

const Platform = "file"

// snapshotFile is the JSON layout of an exported identity snapshot. Values
// are carried through as written, screening during the review decides what
// is usable.
type snapshotFile struct {
	Platform   string         `json:"platform"`
	Identities []identityJSON `json:"identities"`
}

type identityJSON struct {
	Id           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Platform     string            `json:"platform"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity *time.Time        `json:"last_activity"`
	Policies     []documentJSON    `json:"policies"`
	Metadata     map[string]string `json:"metadata"`
}

type documentJSON struct {
	Name       string          `json:"name"`
	Statements []statementJSON `json:"statements"`
}

type statementJSON struct {
	Effect    string   `json:"effect"`
	Actions   []string `json:"actions"`
	Resources []string `json:"resources"`
}

// Provider reads identities from a snapshot file instead of a live platform.
// Useful for CI runs and for reviewing exports taken elsewhere.
type Provider struct {
	path string
}

// Factory builds the file provider from a connection profile.
// Recognized profile keys: path.
func Factory(_ context.Context, profile registry.Profile) (source.Provider, error) {
	path := profile.Get("path")
	if path == "" {
		return nil, fmt.Errorf("profile %q is missing path", profile.Name)
	}
	return NewProvider(path), nil
}

func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

func (p *Provider) Platform() string { return Platform }

func (p *Provider) FetchIdentities(_ context.Context) ([]domain.IdentitySnapshot, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file %s: %w", p.path, err)
	}

	snapshots := make([]domain.IdentitySnapshot, 0, len(file.Identities))
	for _, id := range file.Identities {
		snapshots = append(snapshots, mapIdentity(id, file.Platform))
	}
	return snapshots, nil
}

func mapIdentity(id identityJSON, filePlatform string) domain.IdentitySnapshot {
	platform := id.Platform
	if platform == "" {
		platform = filePlatform
	}
	if platform == "" {
		platform = Platform
	}

	docs := make([]domain.PermissionDocument, 0, len(id.Policies))
	for _, doc := range id.Policies {
		statements := make([]domain.Statement, 0, len(doc.Statements))
		for _, s := range doc.Statements {
			statements = append(statements, domain.Statement{
				Effect:    domain.Effect(strings.ToLower(s.Effect)),
				Actions:   s.Actions,
				Resources: s.Resources,
			})
		}
		docs = append(docs, domain.PermissionDocument{
			Name:       doc.Name,
			Statements: statements,
		})
	}

	return domain.IdentitySnapshot{
		ID:           id.Id,
		Name:         id.Name,
		Type:         domain.IdentityType(id.Type),
		Platform:     platform,
		CreatedAt:    id.CreatedAt,
		LastActivity: id.LastActivity,
		Policies:     docs,
		Metadata:     id.Metadata,
	}
}
