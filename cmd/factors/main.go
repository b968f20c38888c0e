package main

import (
	"os"

	"github.com/quantfoundry/factors/cmd/factors/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
