package main

import (
	"os"

	"github.com/heftdb/heft/cmd/heft/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
