package keyring

import (
	"database/sql"
	"errors"
	"fmt"
)

// Triangle links a counterpart's root identity to the matching leaf
// identities on both sides of a DM relationship. Triangles are established
// once per relationship and never updated.
type Triangle struct {
	Root      string // counterpart's root identity
	MyLeaf    string // this node's leaf for that root
	TheirLeaf string // counterpart's leaf
}

// AddDMTriangle records a triangulation relation. The table is append-only;
// re-adding an existing relation is a no-op.
func (k *Keyring) AddDMTriangle(t Triangle) error {
	_, err := k.db.Exec(
		"INSERT OR IGNORE INTO dm_triangle (root, my_leaf, their_leaf) VALUES (?, ?, ?)",
		t.Root, t.MyLeaf, t.TheirLeaf,
	)
	if err != nil {
		return fmt.Errorf("keyring: add dm triangle: %w", err)
	}
	return nil
}

// GetDMTriangle loads the relation for a counterpart root identity.
// Returns nil, nil if no relation has been established.
func (k *Keyring) GetDMTriangle(root string) (*Triangle, error) {
	var t Triangle
	err := k.db.QueryRow(
		"SELECT root, my_leaf, their_leaf FROM dm_triangle WHERE root = ? LIMIT 1", root,
	).Scan(&t.Root, &t.MyLeaf, &t.TheirLeaf)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring: load dm triangle: %w", err)
	}
	return &t, nil
}
