package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	box2 "github.com/gwillem/box2-go"
)

type decryptCommand struct {
	Author   string `long:"author" required:"true" description:"Author identity of the message"`
	Previous string `long:"previous" description:"Previous message reference"`
}

func (c *decryptCommand) Execute(args []string) error {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(err)
	}
	b64 := strings.TrimSuffix(strings.TrimSpace(string(raw)), ".box2")
	ciphertext, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		fatal(fmt.Errorf("decode ciphertext: %w", err))
	}

	f, err := openFormat()
	if err != nil {
		fatal(err)
	}
	defer f.Teardown()

	plaintext, err := f.Decrypt(ciphertext, box2.DecryptOpts{
		Author:   c.Author,
		Previous: c.Previous,
	})
	if err != nil {
		fatal(err)
	}
	if plaintext == nil {
		fmt.Fprintln(os.Stderr, "not a recipient of this message")
		os.Exit(2)
	}

	os.Stdout.Write(plaintext)
	return nil
}
