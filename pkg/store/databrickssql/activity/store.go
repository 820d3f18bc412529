package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Store interface {
	// LastActivities returns the most recent audit event time per principal name.
	LastActivities(ctx context.Context) (map[string]time.Time, error)
}

type activityStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &activityStore{db: db}
}

func (a *activityStore) LastActivities(ctx context.Context) (map[string]time.Time, error) {
	logger := zerolog.Ctx(ctx)

	query := `
        SELECT
            user_identity.email as principal,
            MAX(event_time) as last_seen
        FROM
            system.access.audit
        GROUP BY
            user_identity.email
        `

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("audit activity query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to close audit activity rows")
		}
	}(rows)

	activities := make(map[string]time.Time)
	for rows.Next() {
		var (
			principal sql.NullString
			lastSeen  sql.NullTime
		)
		if err := rows.Scan(&principal, &lastSeen); err != nil {
			return nil, err
		}
		if !principal.Valid || !lastSeen.Valid {
			continue
		}
		activities[principal.String] = lastSeen.Time
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit activity rows failed: %w", err)
	}

	logger.Debug().
		Int("principals", len(activities)).
		Msg("retrieved audit activity")

	return activities, nil
}
