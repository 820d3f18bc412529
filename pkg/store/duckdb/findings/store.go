package findings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/access-atlas/pkg/models/store"
)

type Store interface {
	// SaveRun persists the run summary and its findings atomically.
	SaveRun(ctx context.Context, run store.RunRecord, records []store.FindingRecord) error
	ListRuns(ctx context.Context) ([]store.RunRecord, error)
	GetFindings(ctx context.Context, runID string) ([]store.FindingRecord, error)
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

func (s *defaultStore) SaveRun(ctx context.Context, run store.RunRecord, records []store.FindingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_runs (
			id, profile, generated_at, finding_count, high_count, critical_count
		) VALUES (
			?, ?, ?, ?, ?, ?
		)`,
		run.RunID,
		run.Profile,
		run.GeneratedAt,
		run.FindingCount,
		run.HighCount,
		run.CriticalCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (
			run_id, identity_id, identity_name, identity_type, platform,
			score, level, top_factor, evidence, factors, evaluated_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err = stmt.ExecContext(ctx,
			rec.RunID,
			rec.IdentityID,
			rec.IdentityName,
			rec.IdentityType,
			rec.Platform,
			rec.Score,
			rec.Level,
			rec.TopFactor,
			rec.Evidence,
			rec.FactorsJSON,
			rec.EvaluatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	return tx.Commit()
}

func (s *defaultStore) ListRuns(ctx context.Context) ([]store.RunRecord, error) {
	query := `
		SELECT id, profile, generated_at, finding_count, high_count, critical_count
		FROM review_runs
		ORDER BY generated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]store.RunRecord, 0)
	for rows.Next() {
		var run store.RunRecord
		if err := rows.Scan(
			&run.RunID,
			&run.Profile,
			&run.GeneratedAt,
			&run.FindingCount,
			&run.HighCount,
			&run.CriticalCount,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *defaultStore) GetFindings(ctx context.Context, runID string) ([]store.FindingRecord, error) {
	query := `
		SELECT run_id, identity_id, identity_name, identity_type, platform,
		       score, level, top_factor, evidence, factors, evaluated_at
		FROM findings
		WHERE run_id = ?
		ORDER BY score DESC, identity_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	records := make([]store.FindingRecord, 0)
	for rows.Next() {
		var rec store.FindingRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.IdentityID,
			&rec.IdentityName,
			&rec.IdentityType,
			&rec.Platform,
			&rec.Score,
			&rec.Level,
			&rec.TopFactor,
			&rec.Evidence,
			&rec.FactorsJSON,
			&rec.EvaluatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
