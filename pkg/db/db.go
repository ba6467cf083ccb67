// Package db persists runs, documents, their vocabulary and the dictionary
// lookup cache in sqlite.
package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var migrationsSQL string

// Open opens (creating if needed) the sqlite database at path and applies
// the schema. Use ":memory:" for a throwaway database.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: shared.
	conn.SetMaxOpenConns(1)
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return conn, nil
}

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
