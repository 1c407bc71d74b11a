package box2

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptToSelf(t *testing.T) {
	f, keys := testFormat(t)
	if err := f.SetOwnDMKey(randomKey(t)); err != nil {
		t.Fatal(err)
	}

	ct, err := f.Encrypt([]byte("note to self"), EncryptOpts{
		Keys:       keys,
		Recipients: []Recipient{RecipientRef(keys.ID)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ct) == 0 {
		t.Fatal("empty ciphertext")
	}
}

func TestEncryptToSelfWithoutOwnKey(t *testing.T) {
	f, keys := testFormat(t)
	_, err := f.Encrypt([]byte("x"), EncryptOpts{
		Keys:       keys,
		Recipients: []Recipient{RecipientRef(keys.ID)},
	})
	if !errors.Is(err, ErrNoDMKey) {
		t.Errorf("got %v, want ErrNoDMKey", err)
	}
}

func TestEncryptInlineGroupKey(t *testing.T) {
	f, keys := testFormat(t)

	// A primordial group: raw key, no prior registration.
	ct, err := f.Encrypt([]byte("founding message"), EncryptOpts{
		Keys:       keys,
		Recipients: []Recipient{RecipientKey(randomKey(t), SchemeLargeSymmetricGroup)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ct) == 0 {
		t.Fatal("empty ciphertext")
	}
}

func TestEncryptUnclassifiableRecipient(t *testing.T) {
	f, keys := testFormat(t)

	for _, recp := range []Recipient{
		RecipientRef("nonsense"),
		RecipientRef(randomGroupID(t)), // well-formed but unregistered
		RecipientKey([]byte("short"), SchemeLargeSymmetricGroup),
		{},
	} {
		_, err := f.Encrypt([]byte("x"), EncryptOpts{
			Keys:       keys,
			Recipients: []Recipient{recp},
		})
		if !errors.Is(err, ErrUnsupportedRecipient) {
			t.Errorf("%s: got %v, want ErrUnsupportedRecipient", recp, err)
		}
		if err != nil && !strings.Contains(err.Error(), "no keys found") {
			t.Errorf("%s: error %q should mention missing keys", recp, err)
		}
	}
}

func TestEncryptEmptyRecipients(t *testing.T) {
	f, keys := testFormat(t)
	_, err := f.Encrypt([]byte("x"), EncryptOpts{Keys: keys})
	if !errors.Is(err, ErrEmptyRecipients) {
		t.Errorf("got %v, want ErrEmptyRecipients", err)
	}
}

func TestEncryptRecipientCountBound(t *testing.T) {
	f, keys := testFormat(t)

	feeds := func(n int) []Recipient {
		recps := make([]Recipient, n)
		for i := range recps {
			other, err := GenerateKeys()
			if err != nil {
				t.Fatal(err)
			}
			recps[i] = RecipientRef(other.ID)
		}
		return recps
	}

	// Exactly 16 succeeds.
	if _, err := f.Encrypt([]byte("x"), EncryptOpts{Keys: keys, Recipients: feeds(16)}); err != nil {
		t.Fatalf("16 recipients: %v", err)
	}

	// 17 fails with the count in the message.
	_, err := f.Encrypt([]byte("x"), EncryptOpts{Keys: keys, Recipients: feeds(17)})
	if !errors.Is(err, ErrTooManyRecipients) {
		t.Fatalf("got %v, want ErrTooManyRecipients", err)
	}
	if !strings.Contains(err.Error(), "maximum 16") {
		t.Errorf("error %q should mention the maximum", err)
	}
	var tooMany *TooManyRecipientsError
	if !errors.As(err, &tooMany) || tooMany.Count != 17 {
		t.Errorf("got %+v, want count 17", tooMany)
	}
}

func TestEncryptGroupCountBound(t *testing.T) {
	f, keys := testFormat(t)

	groupA, groupB := randomGroupID(t), randomGroupID(t)
	for _, id := range []string{groupA, groupB} {
		if err := f.AddGroupInfo(id, GroupInfo{Key: randomKey(t)}); err != nil {
			t.Fatal(err)
		}
	}

	_, err := f.Encrypt([]byte("x"), EncryptOpts{
		Keys: keys,
		Recipients: []Recipient{
			RecipientRef(groupA),
			RecipientRef(groupB),
		},
	})
	if !errors.Is(err, ErrMultipleGroupRecipients) {
		t.Fatalf("got %v, want ErrMultipleGroupRecipients", err)
	}
	if !strings.Contains(err.Error(), "only one group recipient") {
		t.Errorf("error %q should mention the group bound", err)
	}
}

func TestEncryptBadPrevious(t *testing.T) {
	f, keys := testFormat(t)
	if err := f.SetOwnDMKey(randomKey(t)); err != nil {
		t.Fatal(err)
	}

	_, err := f.Encrypt([]byte("x"), EncryptOpts{
		Keys:       keys,
		Previous:   "not-a-message-ref",
		Recipients: []Recipient{RecipientRef(keys.ID)},
	})
	if err == nil {
		t.Error("invalid previous reference should fail encryption")
	}
}
