package main

import (
	"crypto/rand"
	"fmt"
	"os"

	box2 "github.com/gwillem/box2-go"
)

type keygenCommand struct {
	Force bool `short:"f" long:"force" description:"Overwrite an existing identity"`
}

func (c *keygenCommand) Execute(args []string) error {
	if _, err := os.Stat(secretPath()); err == nil && !c.Force {
		fatal(fmt.Errorf("identity already exists at %s (use --force to overwrite)", secretPath()))
	}

	keys, err := box2.GenerateKeys()
	if err != nil {
		fatal(err)
	}
	if err := saveKeys(keys); err != nil {
		fatal(err)
	}

	// Open the keyring once so the identity is registered, and seed the
	// self-addressed DM key so encrypt-to-self works out of the box.
	f, err := openFormat()
	if err != nil {
		fatal(err)
	}
	ownKey := make([]byte, 32)
	if _, err := rand.Read(ownKey); err != nil {
		fatal(err)
	}
	if err := f.SetOwnDMKey(ownKey); err != nil {
		fatal(err)
	}
	if err := f.Teardown(); err != nil {
		fatal(err)
	}

	fmt.Println(keys.ID)
	return nil
}
