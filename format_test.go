package box2

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// testFormat returns a Format set up against a throwaway keyring, plus its
// identity keys.
func testFormat(t *testing.T) (*Format, Keys) {
	t.Helper()
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	f := New()
	if err := f.Setup(Config{
		Path: filepath.Join(t.TempDir(), "keyring.db"),
		Keys: keys,
	}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Teardown() })
	return f, keys
}

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	return key
}

// randomGroupID returns a well-formed cloaked group reference.
func randomGroupID(t *testing.T) string {
	t.Helper()
	return "%" + base64.StdEncoding.EncodeToString(randomKey(t)) + ".cloaked"
}

func TestName(t *testing.T) {
	if got := New().Name(); got != "box2" {
		t.Errorf("name: got %q, want %q", got, "box2")
	}
}

func TestSetupTeardown(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "keyring.db")
	f := New()
	if err := f.Setup(Config{Path: path, Keys: keys}); err != nil {
		t.Fatal(err)
	}
	if err := f.Teardown(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("keyring file should persist after teardown: %v", err)
	}
}

func TestSetupTempPath(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	f := New()
	if err := f.Setup(Config{Keys: keys}); err != nil {
		t.Fatal(err)
	}
	defer f.Teardown()

	// Two temp setups must not collide.
	f2 := New()
	if err := f2.Setup(Config{Keys: keys}); err != nil {
		t.Fatal(err)
	}
	defer f2.Teardown()
	if f.path == f2.path {
		t.Error("temp keyring paths should be namespaced uniquely")
	}
}

func TestSetupRegistryOpenError(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	// A path under a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	f := New()
	err = f.Setup(Config{Path: filepath.Join(blocker, "keyring.db"), Keys: keys})
	if !errors.Is(err, ErrRegistryOpen) {
		t.Fatalf("got %v, want ErrRegistryOpen", err)
	}
	var oerr *RegistryOpenError
	if !errors.As(err, &oerr) {
		t.Fatal("expected a *RegistryOpenError")
	}

	// Teardown surfaces the same failure instead of hanging.
	if err := f.Teardown(); !errors.Is(err, ErrRegistryOpen) {
		t.Errorf("teardown after failed setup: got %v, want ErrRegistryOpen", err)
	}
}

func TestTeardownBeforeSetup(t *testing.T) {
	f := New()
	if err := f.Teardown(); !errors.Is(err, ErrNotSetup) {
		t.Errorf("got %v, want ErrNotSetup", err)
	}
}

func TestCallsQueuedUntilSetup(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	f := New()

	type result struct {
		ids []string
		err error
	}
	done := make(chan result, 1)
	go func() {
		ids, err := f.ListGroupIDs()
		done <- result{ids, err}
	}()

	// The call must still be parked before Setup.
	select {
	case <-done:
		t.Fatal("registry call completed before setup")
	case <-time.After(50 * time.Millisecond):
	}

	if err := f.Setup(Config{Path: filepath.Join(t.TempDir(), "keyring.db"), Keys: keys}); err != nil {
		t.Fatal(err)
	}
	defer f.Teardown()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("queued call failed: %v", r.err)
		}
		if len(r.ids) != 0 {
			t.Errorf("queued call returned %v", r.ids)
		}
	case <-time.After(time.Second):
		t.Fatal("queued call not released after setup")
	}
}

func TestGroupManagement(t *testing.T) {
	f, _ := testFormat(t)

	if err := f.AddGroupInfo("", GroupInfo{Key: randomKey(t)}); !errors.Is(err, ErrMissingGroupID) {
		t.Errorf("empty id: got %v, want ErrMissingGroupID", err)
	}
	if _, err := f.GetGroupKeyInfo(""); !errors.Is(err, ErrMissingGroupID) {
		t.Errorf("empty id: got %v, want ErrMissingGroupID", err)
	}
	if err := f.AddGroupInfo("%g.cloaked", GroupInfo{Key: []byte("short")}); err == nil {
		t.Error("short group key should be rejected")
	}

	want := GroupInfo{Key: randomKey(t), Scheme: SchemeLargeSymmetricGroup}
	if err := f.AddGroupInfo("%g.cloaked", GroupInfo{Key: want.Key}); err != nil {
		t.Fatal(err)
	}

	got, err := f.GetGroupKeyInfo("%g.cloaked")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("group info mismatch (-want +got):\n%s", diff)
	}

	missing, err := f.GetGroupKeyInfo("%other.cloaked")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("unregistered group should yield nil info")
	}

	ids, err := f.ListGroupIDs()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"%g.cloaked"}, ids); diff != "" {
		t.Errorf("group ids mismatch (-want +got):\n%s", diff)
	}
}

func TestRootSigningKey(t *testing.T) {
	f, _ := testFormat(t)

	got, err := f.GetRootSigningKey()
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected nil before a root key is registered")
	}

	root, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	if err := f.AddSigningKeys(root, "root"); err != nil {
		t.Fatal(err)
	}

	got, err = f.GetRootSigningKey()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != root.ID {
		t.Errorf("got %v, want root identity %s", got, root.ID)
	}
}

func TestDisableLegacyModeOneShot(t *testing.T) {
	f, _ := testFormat(t)

	if err := f.DisableLegacyMode(); err != nil {
		t.Fatal(err)
	}

	// First use freezes the mode.
	f2, keys2 := testFormat(t)
	if err := f2.SetOwnDMKey(randomKey(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := f2.Encrypt([]byte("x"), EncryptOpts{
		Keys:       keys2,
		Recipients: []Recipient{RecipientRef(keys2.ID)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := f2.DisableLegacyMode(); !errors.Is(err, ErrLegacyModeLocked) {
		t.Errorf("got %v, want ErrLegacyModeLocked", err)
	}
}

func TestSetOwnDMKeyValidation(t *testing.T) {
	f, _ := testFormat(t)
	if err := f.SetOwnDMKey([]byte("short")); err == nil {
		t.Error("short own DM key should be rejected")
	}
}
