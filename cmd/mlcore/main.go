package main

import (
	"os"

	"github.com/YuminosukeSato/mlcore/cmd/mlcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
