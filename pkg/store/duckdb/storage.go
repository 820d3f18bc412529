package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const RunsTableSchema = `
	CREATE TABLE IF NOT EXISTS review_runs (
		id VARCHAR NOT NULL PRIMARY KEY,
		profile VARCHAR NOT NULL,
		generated_at TIMESTAMP NOT NULL,
		finding_count INTEGER NOT NULL,
		high_count INTEGER NOT NULL,
		critical_count INTEGER NOT NULL
	);
`

const FindingsTableSchema = `
	CREATE TABLE IF NOT EXISTS findings (
		run_id VARCHAR NOT NULL,
		identity_id VARCHAR NOT NULL,
		identity_name VARCHAR,
		identity_type VARCHAR NOT NULL,
		platform VARCHAR,
		score INTEGER NOT NULL,
		level VARCHAR NOT NULL,
		top_factor VARCHAR,
		evidence VARCHAR,
		factors JSON,
		evaluated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, identity_id)
	);
`

const AlertStateTableSchema = `
	CREATE TABLE IF NOT EXISTS alert_state (
		identity_id VARCHAR NOT NULL PRIMARY KEY,
		level VARCHAR NOT NULL,
		last_alerted TIMESTAMP NOT NULL
	);
`

var bootQueries = []string{
	RunsTableSchema,
	FindingsTableSchema,
	AlertStateTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		bootQueries := append([]string{}, bootQueries...)

		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
