// Package tfk encodes references into their compact type-format-key binary
// form: one type byte, one format byte, then the 32 key bytes. The binary
// form is what the envelope cipher binds into its key derivation, so the
// encoding here must stay stable.
package tfk

import (
	"fmt"

	"github.com/gwillem/box2-go/internal/ssbref"
)

// Size is the length of every encoded reference.
const Size = 2 + ssbref.KeySize

// Reference types.
const (
	TypeFeed    byte = 0
	TypeMessage byte = 1
)

// Feed formats.
const (
	FormatFeedEd25519    byte = 0
	FormatFeedGabbyGrove byte = 1
	FormatFeedBendyButt  byte = 3
)

// Message formats.
const FormatMessageSHA256 byte = 0

var feedFormats = map[string]byte{
	ssbref.AlgoEd25519:    FormatFeedEd25519,
	ssbref.AlgoGabbyGrove: FormatFeedGabbyGrove,
	ssbref.AlgoBendyButt:  FormatFeedBendyButt,
}

func encode(t, f byte, key [ssbref.KeySize]byte) []byte {
	out := make([]byte, Size)
	out[0] = t
	out[1] = f
	copy(out[2:], key[:])
	return out
}

// EncodeFeed encodes a feed reference.
func EncodeFeed(ref ssbref.FeedRef) ([]byte, error) {
	format, ok := feedFormats[ref.Algo]
	if !ok {
		return nil, fmt.Errorf("tfk: no feed format for algorithm %q", ref.Algo)
	}
	return encode(TypeFeed, format, ref.Key), nil
}

// EncodeMessage encodes a message reference.
func EncodeMessage(ref ssbref.MessageRef) []byte {
	return encode(TypeMessage, FormatMessageSHA256, ref.Key)
}

// EncodeNilMessage encodes the absent previous-message reference used for
// the first message of a feed: a message-typed entry with an all-zero key.
func EncodeNilMessage() []byte {
	return encode(TypeMessage, FormatMessageSHA256, [ssbref.KeySize]byte{})
}
