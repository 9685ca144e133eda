package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iTrooz/componentcache/internal/commands"
)

// Populated at build-time via -ldflags.
var version = "dev"

func main() {
	if err := commands.NewRoot(version).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
