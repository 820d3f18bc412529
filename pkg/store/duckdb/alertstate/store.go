package alertstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/access-atlas/pkg/adapters"
	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/models/store"
)

// Store keeps one alert state row per identity, replaced on every alert.
type Store interface {
	Get(ctx context.Context, identityID string) (*domain.AlertState, error)
	Put(ctx context.Context, state domain.AlertState) error
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{
		db: db,
	}, nil
}

func (s *defaultStore) Get(ctx context.Context, identityID string) (*domain.AlertState, error) {
	query := `
		SELECT identity_id, level, last_alerted
		FROM alert_state
		WHERE identity_id = ?
	`

	var rec store.AlertStateRecord
	err := s.db.QueryRowContext(ctx, query, identityID).Scan(
		&rec.IdentityID,
		&rec.Level,
		&rec.LastAlerted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert state: %w", err)
	}

	state, err := adapters.MapStoreAlertStateToDomain(rec)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *defaultStore) Put(ctx context.Context, state domain.AlertState) error {
	rec := adapters.MapDomainAlertStateToStore(state)

	query := `
		INSERT OR REPLACE INTO alert_state (identity_id, level, last_alerted)
		VALUES (?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, rec.IdentityID, rec.Level, rec.LastAlerted)
	if err != nil {
		return fmt.Errorf("put alert state: %w", err)
	}
	return nil
}
