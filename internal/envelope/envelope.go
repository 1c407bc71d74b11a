// Package envelope implements the box2 envelope cipher: a ciphertext made
// of up to 16 independently wrapped key slots, a sealed header, and a
// sealed body.
//
// Layout:
//
//	slot 0 .. slot n-1   32 bytes each, msgKey XOR derived slot key
//	header box           32 bytes, secretbox of a 16-byte header
//	body box             len(plaintext) + 16 bytes
//
// The header carries the byte offset of the body. A reader who holds one of
// the slotted keys recovers the message key from its slot, re-derives the
// header key, and confirms the guess by opening the header box. Nothing in
// the ciphertext reveals the recipient count or which slot (if any) matched.
package envelope

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the length of all symmetric keys in the format.
	KeySize = 32

	// SlotSize is the length of one wrapped key slot.
	SlotSize = 32

	// MaxSlots is the maximum number of recipient slots per message.
	MaxSlots = 16

	headerSize    = 16
	headerBoxSize = headerSize + secretbox.Overhead
)

// Derivation labels. These bind each derived key to its role; changing any
// of them is a wire-format break.
const (
	infoReadKey   = "box2:read_key"
	infoHeaderKey = "box2:header_key"
	infoBodyKey   = "box2:body_key"
	infoSlotKey   = "box2:slot_key:"
)

// Slot pairs a 32-byte symmetric key with the scheme it was established
// under. The scheme participates in slot key derivation, so a key can never
// be replayed under a different scheme.
type Slot struct {
	Key    []byte
	Scheme string
}

// NewMessageKey samples a fresh random message key.
func NewMessageKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("envelope: sample message key: %w", err)
	}
	return key, nil
}

// derive stretches key into a 32-byte subkey bound to salt and info.
func derive(key, salt []byte, info string) [KeySize]byte {
	var out [KeySize]byte
	r := hkdf.New(sha256.New, key, salt, []byte(info))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		// hkdf.Reader only fails past its output limit; 32 bytes is
		// nowhere near it.
		panic(err)
	}
	return out
}

// contextSalt binds derivation to the message position in the feed.
func contextSalt(author, prev []byte) []byte {
	h := sha256.New()
	h.Write(author)
	h.Write(prev)
	return h.Sum(nil)
}

func slotKey(s Slot, salt []byte) [KeySize]byte {
	return derive(s.Key, salt, infoSlotKey+s.Scheme)
}

// Box seals plaintext for the given slots. author and prev are the
// TFK-encoded author identity and previous-message identity; msgKey must be
// a fresh 32-byte key and is consumed by this call.
func Box(plaintext, author, prev, msgKey []byte, slots []Slot) ([]byte, error) {
	if len(msgKey) != KeySize {
		return nil, fmt.Errorf("envelope: message key must be %d bytes, got %d", KeySize, len(msgKey))
	}
	if len(slots) == 0 || len(slots) > MaxSlots {
		return nil, fmt.Errorf("envelope: slot count %d out of range [1,%d]", len(slots), MaxSlots)
	}

	salt := contextSalt(author, prev)
	readKey := derive(msgKey, salt, infoReadKey)
	headerKey := derive(readKey[:], salt, infoHeaderKey)
	bodyKey := derive(readKey[:], salt, infoBodyKey)

	bodyStart := len(slots)*SlotSize + headerBoxSize
	out := make([]byte, 0, bodyStart+len(plaintext)+secretbox.Overhead)

	// Wrap the message key once per slot.
	for _, s := range slots {
		if len(s.Key) != KeySize {
			return nil, fmt.Errorf("envelope: slot key must be %d bytes, got %d", KeySize, len(s.Key))
		}
		sk := slotKey(s, salt)
		var wrapped [SlotSize]byte
		for i := range wrapped {
			wrapped[i] = msgKey[i] ^ sk[i]
		}
		out = append(out, wrapped[:]...)
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint16(header[:2], uint16(bodyStart))

	// Every box key is derived fresh per message, so a fixed nonce is
	// sound here.
	var nonce [24]byte
	out = secretbox.Seal(out, header[:], &nonce, &headerKey)
	out = secretbox.Seal(out, plaintext, &nonce, &bodyKey)
	return out, nil
}

// Unbox trials the candidate keys against the ciphertext, trying at most
// maxAttempts slot positions per candidate. It returns the plaintext on
// success and nil otherwise; an unauthorized reader and a malformed
// ciphertext yield the same nil.
func Unbox(ciphertext, author, prev []byte, candidates []Slot, maxAttempts int) []byte {
	if maxAttempts < 1 || maxAttempts > MaxSlots {
		maxAttempts = MaxSlots
	}
	if len(ciphertext) < SlotSize+headerBoxSize+secretbox.Overhead {
		return nil
	}

	salt := contextSalt(author, prev)
	var nonce [24]byte

	for attempt := 0; attempt < maxAttempts; attempt++ {
		slotStart := attempt * SlotSize
		if slotStart+SlotSize+headerBoxSize > len(ciphertext) {
			return nil
		}
		slot := ciphertext[slotStart : slotStart+SlotSize]

		for _, cand := range candidates {
			if len(cand.Key) != KeySize {
				continue
			}
			sk := slotKey(cand, salt)
			var msgKey [KeySize]byte
			for i := range msgKey {
				msgKey[i] = slot[i] ^ sk[i]
			}
			readKey := derive(msgKey[:], salt, infoReadKey)
			headerKey := derive(readKey[:], salt, infoHeaderKey)

			// The slot count is hidden, so the header position is
			// unknown; it can only lie on a slot boundary after the
			// slot being tried.
			for n := attempt + 1; n <= MaxSlots; n++ {
				hdrStart := n * SlotSize
				if hdrStart+headerBoxSize > len(ciphertext) {
					break
				}
				header, ok := secretbox.Open(nil, ciphertext[hdrStart:hdrStart+headerBoxSize], &nonce, &headerKey)
				if !ok {
					continue
				}
				bodyStart := int(binary.BigEndian.Uint16(header[:2]))
				if bodyStart != hdrStart+headerBoxSize || bodyStart >= len(ciphertext) {
					return nil
				}
				bodyKey := derive(readKey[:], salt, infoBodyKey)
				plaintext, ok := secretbox.Open(nil, ciphertext[bodyStart:], &nonce, &bodyKey)
				if !ok {
					return nil
				}
				if plaintext == nil {
					// Success must stay distinguishable from "no
					// result" even for empty messages.
					plaintext = []byte{}
				}
				return plaintext
			}
		}
	}
	return nil
}
