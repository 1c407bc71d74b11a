package keyring

import (
	"database/sql"
	"errors"
	"fmt"
)

const configOwnDMKey = "own_dm_key"

// SetOwnDMKey stores the node's current self-addressed DM key, replacing
// any previous one. Messages encrypted to self under the old key become
// undecryptable; that is the point of rotating.
func (k *Keyring) SetOwnDMKey(key []byte) error {
	_, err := k.db.Exec(
		"INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)",
		configOwnDMKey, key,
	)
	if err != nil {
		return fmt.Errorf("keyring: set own dm key: %w", err)
	}
	return nil
}

// GetOwnDMKey loads the node's current self-addressed DM key.
// Returns nil, nil if none has been set.
func (k *Keyring) GetOwnDMKey() ([]byte, error) {
	var key []byte
	err := k.db.QueryRow(
		"SELECT value FROM config WHERE key = ?", configOwnDMKey,
	).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring: load own dm key: %w", err)
	}
	return key, nil
}
