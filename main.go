package main

import (
	"github.com/ethbind/ethbind/cmd"
)

func main() {
	cmd.Execute()
}
