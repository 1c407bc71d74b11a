// Package box2 implements the box2 multi-recipient message encryption
// format for scuttlebutt feeds. Every message is encrypted to a bounded
// set of recipients (the author itself, DM counterparts, or a group
// sharing a symmetric key) and decryption is trial-based, so a reader
// who holds none of the right keys learns nothing, not even that it was
// never a recipient.
package box2

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/box2-go/internal/envelope"
	"github.com/gwillem/box2-go/internal/keyring"
	"github.com/gwillem/box2-go/internal/ssbref"
)

// Name is the format identifier under which this plugin registers with a
// host messaging system.
const Name = "box2"

// Key schemes. A scheme tags how a slotted key was established and is
// bound into slot derivation by the envelope cipher.
const (
	SchemeLargeSymmetricGroup = "envelope-large-symmetric-group"
	SchemeDMConvertedEd25519  = "envelope-id-based-dm-converted-ed25519"
	SchemeSymmetricKeyForSelf = "envelope-symmetric-key-for-self"
)

// Keys is an identity key pair together with its feed reference.
type Keys struct {
	ID      string // feed reference, e.g. "@...=.ed25519"
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeys creates a fresh ed25519 identity.
func GenerateKeys() (Keys, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keys{}, fmt.Errorf("box2: generate keys: %w", err)
	}
	ref, err := ssbref.NewFeedRef(pub)
	if err != nil {
		return Keys{}, err
	}
	return Keys{ID: ref.String(), Public: pub, Private: priv}, nil
}

// GroupInfo describes a registered group key.
type GroupInfo struct {
	Key    []byte // 32-byte symmetric key
	Scheme string // defaults to SchemeLargeSymmetricGroup
}

// Config carries the Setup parameters: the node's identity keys and an
// optional keyring path.
type Config struct {
	// Path locates the keyring database. Empty means a temporary,
	// timestamp-namespaced location.
	Path string
	// Keys is the node's default identity.
	Keys Keys
}

// Format is the box2 format plugin. Registry-dependent calls issued before
// Setup completes are held at the readiness gate and released in call
// order once the keyring is open.
type Format struct {
	logger *log.Logger

	gate    gate
	started atomic.Bool
	legacy  atomic.Bool
	used    atomic.Bool

	kr   *keyring.Keyring
	keys Keys
	self ssbref.FeedRef
	path string
}

// Option configures a Format.
type Option func(*Format)

// WithLogger sets a logger for diagnostic output. The default is silent.
func WithLogger(l *log.Logger) Option {
	return func(f *Format) { f.logger = l }
}

// New creates a Format in legacy DM mode.
func New(opts ...Option) *Format {
	f := &Format{}
	f.legacy.Store(true)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// logf logs a message if the logger is non-nil.
func (f *Format) logf(format string, args ...any) {
	if f.logger != nil {
		f.logger.Printf(format, args...)
	}
}

// Name returns the format identifier.
func (f *Format) Name() string { return Name }

// Setup opens the key registry and records the node's identity keys, then
// releases any calls parked at the readiness gate. A registry that cannot
// be opened fails with a RegistryOpenError, which is also handed to every
// parked caller.
func (f *Format) Setup(cfg Config) error {
	f.started.Store(true)

	self, err := ssbref.ParseFeedRef(cfg.Keys.ID)
	if err != nil {
		err = fmt.Errorf("box2: setup: bad identity: %w", err)
		f.gate.open(err)
		return err
	}

	path := cfg.Path
	if path == "" {
		path = filepath.Join(os.TempDir(),
			fmt.Sprintf("box2-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8]),
			"keyring.db")
	}

	kr, err := keyring.Open(path)
	if err != nil {
		oerr := &RegistryOpenError{Path: path, Err: err}
		f.gate.open(oerr)
		return oerr
	}

	if err := kr.AddSigningKey(keyring.SigningKey{
		ID:      self.String(),
		Public:  cfg.Keys.Public,
		Private: cfg.Keys.Private,
	}); err != nil {
		kr.Close()
		err = fmt.Errorf("box2: setup: %w", err)
		f.gate.open(err)
		return err
	}

	f.kr = kr
	f.keys = cfg.Keys
	f.self = self
	f.path = path
	f.logf("box2: keyring ready at %s", path)
	f.gate.open(nil)
	return nil
}

// Teardown closes the key registry. Calling it before Setup was ever
// invoked returns ErrNotSetup rather than waiting forever; a Teardown
// racing a running Setup waits for its outcome.
func (f *Format) Teardown() error {
	if !f.started.Load() {
		return ErrNotSetup
	}
	if err := f.gate.wait(); err != nil {
		return err
	}
	return f.kr.Close()
}

// SetOwnDMKey replaces the node's self-addressed DM key. Messages
// previously encrypted to self under the old key can no longer be
// decrypted afterwards.
func (f *Format) SetOwnDMKey(key []byte) error {
	if err := f.gate.wait(); err != nil {
		return err
	}
	if len(key) != envelope.KeySize {
		return fmt.Errorf("box2: own DM key must be %d bytes, got %d", envelope.KeySize, len(key))
	}
	return f.kr.SetOwnDMKey(key)
}

// AddGroupInfo registers a group key under a group id.
func (f *Format) AddGroupInfo(groupID string, info GroupInfo) error {
	if groupID == "" {
		return ErrMissingGroupID
	}
	if err := f.gate.wait(); err != nil {
		return err
	}
	if len(info.Key) != envelope.KeySize {
		return fmt.Errorf("box2: group key must be %d bytes, got %d", envelope.KeySize, len(info.Key))
	}
	scheme := info.Scheme
	if scheme == "" {
		scheme = SchemeLargeSymmetricGroup
	}
	return f.kr.AddGroup(keyring.Group{ID: groupID, Key: info.Key, Scheme: scheme})
}

// ListGroupIDs returns the ids of all registered groups.
func (f *Format) ListGroupIDs() ([]string, error) {
	if err := f.gate.wait(); err != nil {
		return nil, err
	}
	groups, err := f.kr.ListGroups()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// GetGroupKeyInfo returns the registered key info for a group id, or
// nil, nil if the group is unknown.
func (f *Format) GetGroupKeyInfo(groupID string) (*GroupInfo, error) {
	if groupID == "" {
		return nil, ErrMissingGroupID
	}
	if err := f.gate.wait(); err != nil {
		return nil, err
	}
	g, err := f.kr.GetGroup(groupID)
	if err != nil || g == nil {
		return nil, err
	}
	return &GroupInfo{Key: g.Key, Scheme: g.Scheme}, nil
}

// AddSigningKeys registers an additional identity held by this node. An
// identity registered here is treated as "self" by encryption and
// decryption. The tag keyring.TagRoot marks the root identity used by
// triangulated DM agreement.
func (f *Format) AddSigningKeys(keys Keys, tag string) error {
	if err := f.gate.wait(); err != nil {
		return err
	}
	ref, err := ssbref.ParseFeedRef(keys.ID)
	if err != nil {
		return fmt.Errorf("box2: add signing keys: %w", err)
	}
	return f.kr.AddSigningKey(keyring.SigningKey{
		ID:      ref.String(),
		Public:  keys.Public,
		Private: keys.Private,
		Tag:     tag,
	})
}

// GetRootSigningKey returns the identity tagged as root, or nil, nil if
// none is registered.
func (f *Format) GetRootSigningKey() (*Keys, error) {
	if err := f.gate.wait(); err != nil {
		return nil, err
	}
	sk, err := f.kr.GetSigningKeyByTag(keyring.TagRoot)
	if err != nil || sk == nil {
		return nil, err
	}
	return &Keys{ID: sk.ID, Public: sk.Public, Private: sk.Private}, nil
}

// AddDMTriangle records the triangulation relation for a counterpart root
// identity. Re-adding an existing relation is a no-op.
func (f *Format) AddDMTriangle(rootCounterpart, myLeaf, counterpartLeaf string) error {
	if err := f.gate.wait(); err != nil {
		return err
	}
	return f.kr.AddDMTriangle(keyring.Triangle{
		Root:      rootCounterpart,
		MyLeaf:    myLeaf,
		TheirLeaf: counterpartLeaf,
	})
}

// DisableLegacyMode switches DM key agreement to triangulated mode. The
// switch is one-shot and must happen before the first encrypt or decrypt;
// afterwards the mode is frozen for the process lifetime.
func (f *Format) DisableLegacyMode() error {
	if f.used.Load() {
		return ErrLegacyModeLocked
	}
	f.legacy.Store(false)
	return nil
}
