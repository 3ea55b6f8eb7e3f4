// Package testutil opens throwaway databases for package tests, going
// through the real migration path so tests exercise the production schema.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nlodi/formloom/config"
	"github.com/nlodi/formloom/database"
)

func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.Config{DBUrl: filepath.Join(t.TempDir(), "test.sqlite")}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func CreateUser(t *testing.T, db *sql.DB, email string) int {
	t.Helper()

	var id int
	err := db.QueryRow(`
		INSERT INTO user (email, name, password_hash, created_at)
		VALUES (?, '', 'x', ?)
		RETURNING id`,
		email, time.Now(),
	).Scan(&id)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}
