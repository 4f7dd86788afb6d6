package main

import (
	"os"

	"github.com/ken-1511/howard-financial/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
