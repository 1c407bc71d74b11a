package box2

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/gwillem/box2-go/internal/envelope"
	"github.com/gwillem/box2-go/internal/ssbref"
)

const dmSharedInfo = "box2:dm:shared:"

// privateToCurve converts an ed25519 private key into an X25519 scalar.
func privateToCurve(priv ed25519.PrivateKey) []byte {
	h := sha512.Sum512(priv.Seed())
	s := h[:curve25519.ScalarSize]
	s[0] &= 248
	s[31] &= 127
	s[31] |= 64
	return s
}

// publicToCurve converts an ed25519 public key into its Montgomery form.
func publicToCurve(pub []byte) ([]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return nil, fmt.Errorf("box2: convert public key: %w", err)
	}
	return p.BytesMontgomery(), nil
}

// deriveSharedKey computes the pairwise DM secret between an identity this
// node holds and a counterpart's feed reference: X25519 over the converted
// ed25519 keys, stretched with HKDF bound to the (order-independent) pair
// of canonical identity ids, so both parties derive the identical key.
func deriveSharedKey(mine Keys, their ssbref.FeedRef) ([]byte, error) {
	myRef, err := ssbref.ParseFeedRef(mine.ID)
	if err != nil {
		return nil, fmt.Errorf("box2: derive shared key: %w", err)
	}
	theirCurve, err := publicToCurve(their.Key[:])
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(privateToCurve(mine.Private), theirCurve)
	if err != nil {
		return nil, fmt.Errorf("box2: derive shared secret: %w", err)
	}

	lo, hi := myRef.String(), their.String()
	if hi < lo {
		lo, hi = hi, lo
	}
	key := make([]byte, envelope.KeySize)
	r := hkdf.New(sha256.New, shared, nil, []byte(dmSharedInfo+lo+":"+hi))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("box2: derive shared key: %w", err)
	}
	return key, nil
}

// dmKey resolves the pairwise key between one of this node's identities
// and a counterpart under the active mode. The two modes are mutually
// exclusive: a pair derived in one mode is never served to the other.
func (f *Format) dmKey(mine Keys, counterpart ssbref.FeedRef) ([]byte, error) {
	if f.legacy.Load() {
		return f.legacyDMKey(mine, counterpart)
	}
	return f.triangulatedDMKey(counterpart)
}

// legacyDMKey looks up the direct pairwise key between an identity this
// node holds and a counterpart, deriving and persisting it on first use.
// Re-deriving an existing pair yields the same key and the registry keeps
// the first write.
func (f *Format) legacyDMKey(mine Keys, counterpart ssbref.FeedRef) ([]byte, error) {
	myRef, err := ssbref.ParseFeedRef(mine.ID)
	if err != nil {
		return nil, fmt.Errorf("box2: bad identity: %w", err)
	}
	myID, id := myRef.String(), counterpart.String()
	key, err := f.kr.GetDMPair(myID, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		derived, err := deriveSharedKey(mine, counterpart)
		if err != nil {
			return nil, err
		}
		if err := f.kr.AddDMPair(myID, id, derived); err != nil {
			return nil, err
		}
		key, err = f.kr.GetDMPair(myID, id)
		if err != nil {
			return nil, err
		}
	}
	if key == nil {
		return nil, &NoDMKeyError{Counterpart: id}
	}
	return key, nil
}

// triangulatedDMKey treats the counterpart as a root identity: a
// registered triangulation relation names our leaf and theirs, and the
// pairwise key lives between the two leaves, never between the roots.
// Compromise of a root signing key alone therefore exposes no past DM
// secrets.
func (f *Format) triangulatedDMKey(counterpart ssbref.FeedRef) ([]byte, error) {
	id := counterpart.String()
	tri, err := f.kr.GetDMTriangle(id)
	if err != nil {
		return nil, err
	}
	if tri == nil {
		return nil, &NoDMKeyError{Counterpart: id}
	}
	key, err := f.kr.GetDMPair(tri.MyLeaf, tri.TheirLeaf)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, &NoDMKeyError{Counterpart: id}
	}
	return key, nil
}

// AddDMPair derives and registers the pairwise key between one of this
// node's identities and a counterpart. Group-management collaborators use
// it to bind leaf identities; re-adding an existing pair is a no-op.
func (f *Format) AddDMPair(myKeys Keys, theirID string) error {
	if err := f.gate.wait(); err != nil {
		return err
	}
	myRef, err := ssbref.ParseFeedRef(myKeys.ID)
	if err != nil {
		return fmt.Errorf("box2: add DM pair: %w", err)
	}
	their, err := ssbref.ParseFeedRef(theirID)
	if err != nil {
		return fmt.Errorf("box2: add DM pair: %w", err)
	}
	key, err := deriveSharedKey(myKeys, their)
	if err != nil {
		return err
	}
	return f.kr.AddDMPair(myRef.String(), their.String(), key)
}
