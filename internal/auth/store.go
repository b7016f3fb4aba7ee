// Package auth persists user credentials in SQLite and answers
// register/verify queries. There is no update or delete path; the user table
// is insert-only.
package auth

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateUser is returned by Register when the username already exists.
var ErrDuplicateUser = errors.New("username already exists")

// Store handles SQLite operations for the user table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the user database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open user database: %w", err)
	}
	// One connection keeps concurrent registrations serialized inside
	// SQLite instead of surfacing busy errors.
	db.SetMaxOpenConns(1)

	// Same layout the legacy server used, so an existing user.db keeps
	// working.
	schema := `CREATE TABLE IF NOT EXISTS users (
		username TEXT UNIQUE,
		password_hash TEXT
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashPassword returns the hex SHA-256 digest of password. Deterministic and
// unsalted to stay hash-compatible with databases written by the legacy
// server; new deployments that do not need that compatibility should migrate
// to a salted, iterated scheme.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register inserts a new user. Returns ErrDuplicateUser if the username is
// taken, leaving the store unmodified.
func (s *Store) Register(username, password string) error {
	_, err := s.db.Exec(
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, HashPassword(password),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// Verify reports whether a user with the given username and password exists.
func (s *Store) Verify(username, password string) (bool, error) {
	var storedHash string
	err := s.db.QueryRow(
		"SELECT password_hash FROM users WHERE username = ?",
		username,
	).Scan(&storedHash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return storedHash == HashPassword(password), nil
}

// Count returns the number of registered users.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
