// Command box2 is a CLI for the box2 message encryption format.
//
// Usage:
//
//	box2 keygen                      Generate an identity and keyring
//	box2 encrypt <recp> [<recp>...]  Encrypt stdin to recipients
//	box2 decrypt --author <ref>      Trial-decrypt stdin
//	box2 group add/list              Manage registered group keys
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	box2 "github.com/gwillem/box2-go"
	"github.com/gwillem/box2-go/internal/keyring"
)

type globalOpts struct {
	Keyring string `long:"keyring" description:"Path to keyring database"`
	Secret  string `long:"secret" description:"Path to identity secret file"`
	Verbose bool   `short:"v" long:"verbose" description:"Enable verbose logging"`

	Keygen  keygenCommand  `command:"keygen" description:"Generate a new identity"`
	Encrypt encryptCommand `command:"encrypt" description:"Encrypt stdin to a set of recipients"`
	Decrypt decryptCommand `command:"decrypt" description:"Trial-decrypt a ciphertext from stdin"`
	Group   groupCommand   `command:"group" description:"Manage registered group keys"`
}

var opts globalOpts

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = false

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func keyringPath() string {
	if opts.Keyring != "" {
		return opts.Keyring
	}
	return filepath.Join(keyring.DefaultDataDir(), "keyring.db")
}

func secretPath() string {
	if opts.Secret != "" {
		return opts.Secret
	}
	return filepath.Join(keyring.DefaultDataDir(), "secret.json")
}

// secretFile is the on-disk identity format.
type secretFile struct {
	ID      string `json:"id"`
	Public  string `json:"public"`  // base64
	Private string `json:"private"` // base64
}

func loadKeys() (box2.Keys, error) {
	data, err := os.ReadFile(secretPath())
	if err != nil {
		return box2.Keys{}, fmt.Errorf("read secret (run `box2 keygen` first?): %w", err)
	}
	var sf secretFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return box2.Keys{}, fmt.Errorf("parse secret: %w", err)
	}
	pub, err := base64.StdEncoding.DecodeString(sf.Public)
	if err != nil {
		return box2.Keys{}, fmt.Errorf("decode public key: %w", err)
	}
	priv, err := base64.StdEncoding.DecodeString(sf.Private)
	if err != nil {
		return box2.Keys{}, fmt.Errorf("decode private key: %w", err)
	}
	return box2.Keys{
		ID:      sf.ID,
		Public:  ed25519.PublicKey(pub),
		Private: ed25519.PrivateKey(priv),
	}, nil
}

func saveKeys(keys box2.Keys) error {
	sf := secretFile{
		ID:      keys.ID,
		Public:  base64.StdEncoding.EncodeToString(keys.Public),
		Private: base64.StdEncoding.EncodeToString(keys.Private),
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	path := secretPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// openFormat sets up a Format against the configured keyring and identity.
func openFormat() (*box2.Format, error) {
	keys, err := loadKeys()
	if err != nil {
		return nil, err
	}
	var fopts []box2.Option
	if opts.Verbose {
		fopts = append(fopts, box2.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}
	f := box2.New(fopts...)
	if err := f.Setup(box2.Config{Path: keyringPath(), Keys: keys}); err != nil {
		return nil, err
	}
	return f, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
