package main

import (
	"context"
	"os"

	"ledger/internal/cli"
	"ledger/internal/commands"
)

func main() {
	cli.LoadEnvFile()

	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
