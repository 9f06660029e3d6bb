package main

import (
	"os"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
