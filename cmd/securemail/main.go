package main

import (
	"os"

	"securemail/cmd/securemail/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
