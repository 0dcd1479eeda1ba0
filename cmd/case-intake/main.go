package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/spherical/case-intake/cmd/case-intake/commands"
	"github.com/spherical/case-intake/cmd/case-intake/ui"
)

var version = "0.1.0"

func main() {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := commands.Execute(version); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
