// Package ssbref parses and renders scuttlebutt identity references.
//
// Three reference families are recognized: feed references (an author
// identity), message references, and cloaked group references. Feeds and
// messages each exist in a classic sigil form ("@key.ed25519",
// "%key.sha256") and an ssb: URI form ("ssb:feed/ed25519/key"). Group
// references only exist in sigil form ("%key.cloaked").
package ssbref

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the length of the key material in every reference.
const KeySize = 32

// ErrInvalidRef is returned when a string is not a well-formed reference.
var ErrInvalidRef = errors.New("ssbref: invalid reference")

// Feed algorithms, as they appear in sigil suffixes.
const (
	AlgoEd25519    = "ed25519"
	AlgoBendyButt  = "bbfeed-v1"
	AlgoGabbyGrove = "ggfeed-v1"
)

// uriFormats maps ssb: URI format names to sigil algorithms.
var uriFormats = map[string]string{
	"ed25519":       AlgoEd25519,
	"bendybutt-v1":  AlgoBendyButt,
	"gabbygrove-v1": AlgoGabbyGrove,
}

// FeedRef is a parsed author identity reference.
type FeedRef struct {
	Key  [KeySize]byte
	Algo string
}

// String renders the canonical sigil form.
func (r FeedRef) String() string {
	return "@" + base64.StdEncoding.EncodeToString(r.Key[:]) + "." + r.Algo
}

// NewFeedRef builds a classic ed25519 feed reference from a public key.
func NewFeedRef(pub []byte) (FeedRef, error) {
	if len(pub) != KeySize {
		return FeedRef{}, fmt.Errorf("%w: feed key must be %d bytes, got %d", ErrInvalidRef, KeySize, len(pub))
	}
	ref := FeedRef{Algo: AlgoEd25519}
	copy(ref.Key[:], pub)
	return ref, nil
}

// ParseFeedRef parses a feed reference in any recognized syntax.
func ParseFeedRef(s string) (FeedRef, error) {
	if strings.HasPrefix(s, "ssb:") {
		return parseFeedURI(s)
	}
	if !strings.HasPrefix(s, "@") {
		return FeedRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	b64, algo, ok := strings.Cut(s[1:], ".")
	if !ok {
		return FeedRef{}, fmt.Errorf("%w: %q has no algorithm suffix", ErrInvalidRef, s)
	}
	switch algo {
	case AlgoEd25519, AlgoBendyButt, AlgoGabbyGrove:
	default:
		return FeedRef{}, fmt.Errorf("%w: unknown feed algorithm %q", ErrInvalidRef, algo)
	}
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return FeedRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}
	if len(key) != KeySize {
		return FeedRef{}, fmt.Errorf("%w: %q has a %d-byte key", ErrInvalidRef, s, len(key))
	}
	ref := FeedRef{Algo: algo}
	copy(ref.Key[:], key)
	return ref, nil
}

func parseFeedURI(s string) (FeedRef, error) {
	rest, ok := strings.CutPrefix(s, "ssb:feed/")
	if !ok {
		return FeedRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	format, data, ok := strings.Cut(rest, "/")
	if !ok {
		return FeedRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	algo, ok := uriFormats[format]
	if !ok {
		return FeedRef{}, fmt.Errorf("%w: unknown feed format %q", ErrInvalidRef, format)
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return FeedRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}
	if len(key) != KeySize {
		return FeedRef{}, fmt.Errorf("%w: %q has a %d-byte key", ErrInvalidRef, s, len(key))
	}
	ref := FeedRef{Algo: algo}
	copy(ref.Key[:], key)
	return ref, nil
}

// IsFeedRef reports whether s parses as a feed reference.
func IsFeedRef(s string) bool {
	_, err := ParseFeedRef(s)
	return err == nil
}

// GroupRef is a parsed cloaked group identifier.
type GroupRef struct {
	Key [KeySize]byte
}

// String renders the sigil form.
func (r GroupRef) String() string {
	return "%" + base64.StdEncoding.EncodeToString(r.Key[:]) + ".cloaked"
}

// ParseGroupRef parses a cloaked group reference.
func ParseGroupRef(s string) (GroupRef, error) {
	if !strings.HasPrefix(s, "%") || !strings.HasSuffix(s, ".cloaked") {
		return GroupRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(s[1:], ".cloaked"))
	if err != nil {
		return GroupRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}
	if len(key) != KeySize {
		return GroupRef{}, fmt.Errorf("%w: %q has a %d-byte key", ErrInvalidRef, s, len(key))
	}
	ref := GroupRef{}
	copy(ref.Key[:], key)
	return ref, nil
}

// IsGroupRef reports whether s parses as a cloaked group reference.
func IsGroupRef(s string) bool {
	_, err := ParseGroupRef(s)
	return err == nil
}

// MessageRef is a parsed message identifier.
type MessageRef struct {
	Key [KeySize]byte
}

// String renders the sigil form.
func (r MessageRef) String() string {
	return "%" + base64.StdEncoding.EncodeToString(r.Key[:]) + ".sha256"
}

// ParseMessageRef parses a classic message reference.
func ParseMessageRef(s string) (MessageRef, error) {
	if strings.HasPrefix(s, "ssb:message/sha256/") {
		data := strings.TrimPrefix(s, "ssb:message/sha256/")
		key, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil || len(key) != KeySize {
			return MessageRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
		}
		ref := MessageRef{}
		copy(ref.Key[:], key)
		return ref, nil
	}
	if !strings.HasPrefix(s, "%") || !strings.HasSuffix(s, ".sha256") {
		return MessageRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(s[1:], ".sha256"))
	if err != nil {
		return MessageRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}
	if len(key) != KeySize {
		return MessageRef{}, fmt.Errorf("%w: %q has a %d-byte key", ErrInvalidRef, s, len(key))
	}
	ref := MessageRef{}
	copy(ref.Key[:], key)
	return ref, nil
}
