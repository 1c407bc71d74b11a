// Package keyring is the durable key registry behind the box2 format: the
// node's signing keys, derived DM pairs, DM triangulation relations, group
// keys, and the node's own DM key, persisted in a single SQLite database.
package keyring

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Keyring wraps a SQLite database holding all registry state. A keyring is
// owned by exactly one process instance; SQLite provides the locking.
type Keyring struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS signing_key (
	id TEXT PRIMARY KEY,
	public BLOB NOT NULL,
	private BLOB NOT NULL,
	tag TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS dm_pair (
	a TEXT NOT NULL,
	b TEXT NOT NULL,
	key BLOB NOT NULL,
	PRIMARY KEY (a, b)
);
CREATE TABLE IF NOT EXISTS dm_triangle (
	root TEXT NOT NULL,
	my_leaf TEXT NOT NULL,
	their_leaf TEXT NOT NULL,
	PRIMARY KEY (root, my_leaf)
);
CREATE TABLE IF NOT EXISTS group_info (
	group_id TEXT PRIMARY KEY,
	key BLOB NOT NULL,
	scheme TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS config (
	key TEXT PRIMARY KEY,
	value BLOB
);
`

// DefaultDataDir returns the default data directory for box2 keyrings.
// Uses $XDG_DATA_HOME/box2-go, falling back to ~/.local/share/box2-go.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "box2-go")
}

// Open opens or creates a keyring at the given path. If dbPath is empty, it
// defaults to $XDG_DATA_HOME/box2-go/keyring.db.
func Open(dbPath string) (*Keyring, error) {
	if dbPath == "" {
		dbPath = filepath.Join(DefaultDataDir(), "keyring.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("keyring: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("keyring: open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("keyring: set WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("keyring: create schema: %w", err)
	}

	return &Keyring{db: db}, nil
}

// Close closes the database connection.
func (k *Keyring) Close() error {
	return k.db.Close()
}
