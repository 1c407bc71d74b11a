package box2

import (
	"fmt"

	"github.com/gwillem/box2-go/internal/envelope"
	"github.com/gwillem/box2-go/internal/ssbref"
)

// Recipient is one recipient descriptor of an encrypted message: either a
// reference string (feed or group) or an inline raw group key for a group
// that has not been registered yet (a "primordial" group).
type Recipient struct {
	Ref    string // feed or group reference
	Key    []byte // inline 32-byte group key
	Scheme string // scheme of the inline key
}

// RecipientRef wraps a reference string as a Recipient.
func RecipientRef(ref string) Recipient {
	return Recipient{Ref: ref}
}

// RecipientKey wraps an inline group key as a Recipient.
func RecipientKey(key []byte, scheme string) Recipient {
	return Recipient{Key: key, Scheme: scheme}
}

func (r Recipient) String() string {
	if r.Ref != "" {
		return r.Ref
	}
	if len(r.Key) > 0 {
		return fmt.Sprintf("<inline %s key>", r.Scheme)
	}
	return "<empty recipient>"
}

type recipientClass int

const (
	classUnknown recipientClass = iota
	classInlineKey
	classGroup
	classFeed
	classSelf
)

// classify categorizes a recipient descriptor against registry state. It
// never fails on an unrecognized descriptor; resolution raises the error.
func (f *Format) classify(r Recipient) (recipientClass, error) {
	if len(r.Key) == envelope.KeySize && r.Scheme == SchemeLargeSymmetricGroup {
		return classInlineKey, nil
	}

	if ssbref.IsGroupRef(r.Ref) {
		g, err := f.kr.GetGroup(r.Ref)
		if err != nil {
			return classUnknown, err
		}
		if g != nil {
			return classGroup, nil
		}
		return classUnknown, nil
	}

	if ref, err := ssbref.ParseFeedRef(r.Ref); err == nil {
		// Compare in canonical form so URI and sigil spellings of the
		// same identity classify alike.
		id := ref.String()
		if id == f.self.String() {
			return classSelf, nil
		}
		// A signing key in the registry means this node holds the
		// private half: another of our own identities.
		held, err := f.kr.HasSigningKey(id)
		if err != nil {
			return classUnknown, err
		}
		if held {
			return classSelf, nil
		}
		return classFeed, nil
	}

	return classUnknown, nil
}
