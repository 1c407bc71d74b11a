package box2

import (
	"errors"

	"github.com/gwillem/box2-go/internal/envelope"
	"github.com/gwillem/box2-go/internal/keyring"
	"github.com/gwillem/box2-go/internal/ssbref"
	"github.com/gwillem/box2-go/internal/tfk"
)

// Trial bounds per candidate set. Group slots are always placed first by
// Encrypt and at most one can exist, so the group set needs exactly one
// attempt; the other sets scan every possible slot position. The bounds
// track the envelope's 16-slot maximum and must move with it.
const (
	groupAttempts = 1
	selfAttempts  = envelope.MaxSlots
	dmAttempts    = envelope.MaxSlots
)

// DecryptOpts locates a ciphertext in its feed.
type DecryptOpts struct {
	Author   string // author identity of the message
	Previous string // previous message reference, empty for the first message
}

// Decrypt trials the candidate key sets against the ciphertext, groups
// first, then self, then DM, and returns the first recovered plaintext.
// A nil, nil return means this node is not a recipient; an unauthorized
// reader and a malformed ciphertext both end there, without error.
func (f *Format) Decrypt(ciphertext []byte, opts DecryptOpts) ([]byte, error) {
	if err := f.gate.wait(); err != nil {
		return nil, err
	}
	f.used.Store(true)

	author, err := ssbref.ParseFeedRef(opts.Author)
	if err != nil {
		return nil, nil
	}
	authorBin, err := tfk.EncodeFeed(author)
	if err != nil {
		return nil, nil
	}
	prevBin, err := encodePrevious(opts.Previous)
	if err != nil {
		return nil, nil
	}

	// 1. Group set: every registered group key.
	groups, err := f.kr.ListGroups()
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		cands := make([]envelope.Slot, 0, len(groups))
		for _, g := range groups {
			cands = append(cands, envelope.Slot{Key: g.Key, Scheme: g.Scheme})
		}
		if pt := envelope.Unbox(ciphertext, authorBin, prevBin, cands, groupAttempts); pt != nil {
			return pt, nil
		}
	}

	// 2. Self set: our own DM key, if the message could be ours.
	selfCandidate, err := f.isSelfAuthor(author)
	if err != nil {
		return nil, err
	}
	if selfCandidate {
		own, err := f.kr.GetOwnDMKey()
		if err != nil {
			return nil, err
		}
		if own != nil {
			cand := []envelope.Slot{{Key: own, Scheme: SchemeSymmetricKeyForSelf}}
			if pt := envelope.Unbox(ciphertext, authorBin, prevBin, cand, selfAttempts); pt != nil {
				return pt, nil
			}
		}
	}

	// 3. DM set: the pairwise key for (node, author) under the active
	// mode. A counterpart with no resolvable key simply leaves the set
	// empty; in legacy mode the lookup itself derives missing pairs.
	// Triangulated mode additionally requires our root signing key.
	if !f.legacy.Load() {
		root, err := f.kr.GetSigningKeyByTag(keyring.TagRoot)
		if err != nil {
			return nil, err
		}
		if root == nil {
			return nil, nil
		}
	}
	key, err := f.dmKey(f.keys, author)
	if err != nil {
		if errors.Is(err, ErrNoDMKey) {
			return nil, nil
		}
		return nil, err
	}
	cand := []envelope.Slot{{Key: key, Scheme: SchemeDMConvertedEd25519}}
	if pt := envelope.Unbox(ciphertext, authorBin, prevBin, cand, dmAttempts); pt != nil {
		return pt, nil
	}

	return nil, nil
}

// isSelfAuthor reports whether the author could be one of this node's own
// identities: either we hold a signing key for it, or legacy mode is
// active and it is the node's default identity. Comparisons use the
// canonical rendering, so sigil and URI spellings of the same identity
// agree.
func (f *Format) isSelfAuthor(author ssbref.FeedRef) (bool, error) {
	id := author.String()
	held, err := f.kr.HasSigningKey(id)
	if err != nil {
		return false, err
	}
	if held {
		return true, nil
	}
	return f.legacy.Load() && id == f.self.String(), nil
}
