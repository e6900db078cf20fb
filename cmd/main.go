package main

// Entry point: runs the Cobra command tree and exits 1 on any command error
// (including "no accounts configured").

import (
	"fmt"
	"os"

	"depined-bot/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
