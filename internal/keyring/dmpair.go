package keyring

import (
	"database/sql"
	"errors"
	"fmt"
)

// orderPair normalizes a pair of identity ids so that callers can look a
// pair up regardless of which party they name first.
func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// AddDMPair stores the derived pairwise key for two identities. Re-adding
// an existing pair is a no-op; the same inputs always derive the same key,
// so first write wins.
func (k *Keyring) AddDMPair(a, b string, key []byte) error {
	a, b = orderPair(a, b)
	_, err := k.db.Exec(
		"INSERT OR IGNORE INTO dm_pair (a, b, key) VALUES (?, ?, ?)",
		a, b, key,
	)
	if err != nil {
		return fmt.Errorf("keyring: add dm pair: %w", err)
	}
	return nil
}

// GetDMPair loads the pairwise key for two identities, in either order.
// Returns nil, nil if no pair has been derived.
func (k *Keyring) GetDMPair(a, b string) ([]byte, error) {
	a, b = orderPair(a, b)
	var key []byte
	err := k.db.QueryRow(
		"SELECT key FROM dm_pair WHERE a = ? AND b = ?", a, b,
	).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring: load dm pair: %w", err)
	}
	return key, nil
}
