// Package db opens the workspace-local SQLite database.
package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Every workspace keeps its state under a hidden directory next to the data
// it describes, one database file per workspace.
const (
	workspaceDir = ".teampulse"
	dbFile       = "teampulse.db"
)

type Config struct {
	Workspace string
}

// EnsureWorkspace creates the state directory if missing and returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	dir := filepath.Join(workspace, workspaceDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the database file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, workspaceDir, dbFile)
}

// Open opens the workspace database. Writes go through a single connection:
// SQLite allows one writer at a time, and serializing in the pool turns
// would-be SQLITE_BUSY errors into ordinary queueing. busy_timeout covers
// other processes holding the file.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := "file:" + Path(cfg.Workspace) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
