package box2

import (
	"fmt"

	"github.com/gwillem/box2-go/internal/envelope"
	"github.com/gwillem/box2-go/internal/ssbref"
	"github.com/gwillem/box2-go/internal/tfk"
)

// EncryptOpts carries the per-message encryption parameters.
type EncryptOpts struct {
	Keys       Keys   // author identity
	Previous   string // previous message reference, empty for the first message
	Recipients []Recipient
}

// Encrypt seals plaintext for the given recipients. Each recipient is
// resolved to a key slot; the slot list is validated (1–16 slots, at most
// one group) before any cryptographic work happens. Resolving a feed
// recipient may derive and persist a new DM pair as a side effect.
func (f *Format) Encrypt(plaintext []byte, opts EncryptOpts) ([]byte, error) {
	if err := f.gate.wait(); err != nil {
		return nil, err
	}
	f.used.Store(true)

	// The group slot is placed first: trial decryption gives group
	// candidates a single slot attempt.
	var groupSlots, otherSlots []envelope.Slot

	for _, r := range opts.Recipients {
		class, err := f.classify(r)
		if err != nil {
			return nil, err
		}
		switch class {
		case classInlineKey:
			groupSlots = append(groupSlots, envelope.Slot{Key: r.Key, Scheme: r.Scheme})

		case classGroup:
			g, err := f.kr.GetGroup(r.Ref)
			if err != nil {
				return nil, err
			}
			groupSlots = append(groupSlots, envelope.Slot{Key: g.Key, Scheme: g.Scheme})

		case classSelf:
			own, err := f.kr.GetOwnDMKey()
			if err != nil {
				return nil, err
			}
			if own == nil {
				return nil, &NoDMKeyError{Counterpart: r.Ref}
			}
			otherSlots = append(otherSlots, envelope.Slot{Key: own, Scheme: SchemeSymmetricKeyForSelf})

		case classFeed:
			ref, err := ssbref.ParseFeedRef(r.Ref)
			if err != nil {
				return nil, err
			}
			key, err := f.dmKey(opts.Keys, ref)
			if err != nil {
				return nil, err
			}
			otherSlots = append(otherSlots, envelope.Slot{Key: key, Scheme: SchemeDMConvertedEd25519})

		default:
			return nil, &UnsupportedRecipientError{Recipient: r}
		}
	}

	count := len(groupSlots) + len(otherSlots)
	if count == 0 {
		return nil, ErrEmptyRecipients
	}
	if count > envelope.MaxSlots {
		return nil, &TooManyRecipientsError{Count: count}
	}
	if len(groupSlots) > 1 {
		return nil, &MultipleGroupRecipientsError{Count: len(groupSlots)}
	}

	author, err := ssbref.ParseFeedRef(opts.Keys.ID)
	if err != nil {
		return nil, fmt.Errorf("box2: encrypt: bad author: %w", err)
	}
	authorBin, err := tfk.EncodeFeed(author)
	if err != nil {
		return nil, err
	}
	prevBin, err := encodePrevious(opts.Previous)
	if err != nil {
		return nil, err
	}

	msgKey, err := envelope.NewMessageKey()
	if err != nil {
		return nil, err
	}

	return envelope.Box(plaintext, authorBin, prevBin, msgKey, append(groupSlots, otherSlots...))
}

// encodePrevious encodes a previous-message reference, or the nil message
// for the first entry of a feed.
func encodePrevious(previous string) ([]byte, error) {
	if previous == "" {
		return tfk.EncodeNilMessage(), nil
	}
	ref, err := ssbref.ParseMessageRef(previous)
	if err != nil {
		return nil, fmt.Errorf("box2: bad previous message reference: %w", err)
	}
	return tfk.EncodeMessage(ref), nil
}
