package main

import (
	"encoding/base64"
	"fmt"

	box2 "github.com/gwillem/box2-go"
)

type groupCommand struct {
	Add  groupAddCommand  `command:"add" description:"Register a group key"`
	List groupListCommand `command:"list" description:"List registered group ids"`
}

type groupAddCommand struct {
	Args struct {
		GroupID string `positional-arg-name:"group-id" required:"true"`
		Key     string `positional-arg-name:"key-base64" required:"true"`
	} `positional-args:"yes"`
}

func (c *groupAddCommand) Execute(args []string) error {
	key, err := base64.StdEncoding.DecodeString(c.Args.Key)
	if err != nil {
		fatal(fmt.Errorf("decode group key: %w", err))
	}

	f, err := openFormat()
	if err != nil {
		fatal(err)
	}
	defer f.Teardown()

	if err := f.AddGroupInfo(c.Args.GroupID, box2.GroupInfo{Key: key}); err != nil {
		fatal(err)
	}
	return nil
}

type groupListCommand struct{}

func (c *groupListCommand) Execute(args []string) error {
	f, err := openFormat()
	if err != nil {
		fatal(err)
	}
	defer f.Teardown()

	ids, err := f.ListGroupIDs()
	if err != nil {
		fatal(err)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
