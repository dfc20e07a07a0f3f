package main

import (
	"os"

	"github.com/lehmann314159/lexicon/cmd/lexicon/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
