package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	box2 "github.com/gwillem/box2-go"
)

type encryptCommand struct {
	Previous string `long:"previous" description:"Previous message reference"`
	Args     struct {
		Recipients []string `positional-arg-name:"recipient" required:"1"`
	} `positional-args:"yes"`
}

func (c *encryptCommand) Execute(args []string) error {
	plaintext, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(err)
	}

	f, err := openFormat()
	if err != nil {
		fatal(err)
	}
	defer f.Teardown()

	recps := make([]box2.Recipient, 0, len(c.Args.Recipients))
	for _, r := range c.Args.Recipients {
		recps = append(recps, box2.RecipientRef(r))
	}

	keys, err := loadKeys()
	if err != nil {
		fatal(err)
	}
	ciphertext, err := f.Encrypt(plaintext, box2.EncryptOpts{
		Keys:       keys,
		Previous:   c.Previous,
		Recipients: recps,
	})
	if err != nil {
		fatal(err)
	}

	fmt.Println(base64.StdEncoding.EncodeToString(ciphertext) + ".box2")
	return nil
}
