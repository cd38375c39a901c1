// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/gitshed/cmd/gitshed/cmd"
)

func main() {
	cmd.Execute()
}
