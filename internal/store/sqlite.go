package store

import (
	"database/sql"
	"fmt"

	"github.com/yangwenmai/latentvault/internal/model"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) a SQLite database at the given path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, model.ErrStorageUnavailable, err)
	}
	// A single connection serializes transactions, so read-modify-write
	// operations never interleave.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w: %w", p, model.ErrStorageUnavailable, err)
		}
	}
	return db, nil
}
