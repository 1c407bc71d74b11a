package keyring

import (
	"crypto/ed25519"
	"database/sql"
	"errors"
	"fmt"
)

// TagRoot marks the node's root identity used for triangulated DM
// agreement.
const TagRoot = "root"

// SigningKey is one identity key pair held by this node. The untagged entry
// recorded at setup is the node's default identity.
type SigningKey struct {
	ID      string // feed reference
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
	Tag     string
}

// AddSigningKey stores an identity key pair, replacing any previous entry
// for the same id.
func (k *Keyring) AddSigningKey(sk SigningKey) error {
	_, err := k.db.Exec(
		"INSERT OR REPLACE INTO signing_key (id, public, private, tag) VALUES (?, ?, ?, ?)",
		sk.ID, []byte(sk.Public), []byte(sk.Private), sk.Tag,
	)
	if err != nil {
		return fmt.Errorf("keyring: add signing key: %w", err)
	}
	return nil
}

// GetSigningKey loads the key pair for an identity.
// Returns nil, nil if this node holds no key for the id.
func (k *Keyring) GetSigningKey(id string) (*SigningKey, error) {
	var sk SigningKey
	var pub, priv []byte
	err := k.db.QueryRow(
		"SELECT id, public, private, tag FROM signing_key WHERE id = ?", id,
	).Scan(&sk.ID, &pub, &priv, &sk.Tag)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring: load signing key: %w", err)
	}
	sk.Public = ed25519.PublicKey(pub)
	sk.Private = ed25519.PrivateKey(priv)
	return &sk, nil
}

// GetSigningKeyByTag loads the first key pair carrying the given tag.
// Returns nil, nil if no such key exists.
func (k *Keyring) GetSigningKeyByTag(tag string) (*SigningKey, error) {
	var sk SigningKey
	var pub, priv []byte
	err := k.db.QueryRow(
		"SELECT id, public, private, tag FROM signing_key WHERE tag = ? LIMIT 1", tag,
	).Scan(&sk.ID, &pub, &priv, &sk.Tag)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring: load signing key by tag: %w", err)
	}
	sk.Public = ed25519.PublicKey(pub)
	sk.Private = ed25519.PrivateKey(priv)
	return &sk, nil
}

// HasSigningKey reports whether this node holds the private half for the
// given identity.
func (k *Keyring) HasSigningKey(id string) (bool, error) {
	var n int
	err := k.db.QueryRow(
		"SELECT COUNT(*) FROM signing_key WHERE id = ?", id,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("keyring: check signing key: %w", err)
	}
	return n > 0, nil
}
