package keyring

import (
	"database/sql"
	"errors"
	"fmt"
)

// Group is a registered group key. Group keys are shared out-of-band; the
// keyring only records them.
type Group struct {
	ID     string // cloaked group reference
	Key    []byte // 32-byte symmetric key
	Scheme string
}

// AddGroup stores or updates a group key.
func (k *Keyring) AddGroup(g Group) error {
	_, err := k.db.Exec(
		"INSERT OR REPLACE INTO group_info (group_id, key, scheme) VALUES (?, ?, ?)",
		g.ID, g.Key, g.Scheme,
	)
	if err != nil {
		return fmt.Errorf("keyring: add group: %w", err)
	}
	return nil
}

// GetGroup loads a group by its id. Returns nil, nil if unregistered.
func (k *Keyring) GetGroup(groupID string) (*Group, error) {
	var g Group
	err := k.db.QueryRow(
		"SELECT group_id, key, scheme FROM group_info WHERE group_id = ?", groupID,
	).Scan(&g.ID, &g.Key, &g.Scheme)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring: load group: %w", err)
	}
	return &g, nil
}

// ListGroups returns all registered groups ordered by group id.
func (k *Keyring) ListGroups() ([]Group, error) {
	rows, err := k.db.Query(
		"SELECT group_id, key, scheme FROM group_info ORDER BY group_id",
	)
	if err != nil {
		return nil, fmt.Errorf("keyring: list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Key, &g.Scheme); err != nil {
			return nil, fmt.Errorf("keyring: scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
