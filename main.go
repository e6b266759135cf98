package main

import (
	"os"

	"github.com/spigell/navihire/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
