// Package migrate brings a database up to the current schema. Migration
// steps are SQL files embedded at build time, named NNNN_description.sql;
// the zero-padded number is the schema version the step produces.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var steps embed.FS

type step struct {
	version int
	name    string
	sql     string
}

// loadSteps returns all embedded steps in version order. fs.Glob yields
// lexically sorted names, which matches version order for zero-padded
// prefixes; the monotonicity check below catches a misnamed file.
func loadSteps() ([]step, error) {
	names, err := fs.Glob(steps, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]step, 0, len(names))
	prev := 0
	for _, name := range names {
		base := strings.TrimPrefix(name, "sql/")
		prefix, _, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: name needs a NNNN_ prefix", base)
		}
		v, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version prefix: %w", base, err)
		}
		if v <= prev {
			return nil, fmt.Errorf("migration %s: version %d not after %d", base, v, prev)
		}
		prev = v
		body, err := steps.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, step{version: v, name: base, sql: string(body)})
	}
	return out, nil
}

// Migrate applies every step newer than the database's recorded version,
// all inside one transaction. The schema_version table holds a single row.
func Migrate(db *sql.DB) error {
	all, err := loadSteps()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_version: %w", err)
	}
	var have int
	switch err := tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&have); {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return fmt.Errorf("seed schema_version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, s := range all {
		if s.version <= have {
			continue
		}
		if _, err := tx.Exec(s.sql); err != nil {
			return fmt.Errorf("apply %s: %w", s.name, err)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version = ?`, s.version); err != nil {
			return fmt.Errorf("record %s: %w", s.name, err)
		}
		have = s.version
	}
	return tx.Commit()
}
