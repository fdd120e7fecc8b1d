package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Version info (set during build)
var Version = "dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "animator",
		Usage:   "play, export, validate and generate animation plans",
		Version: Version,
		Commands: []*cli.Command{
			playCommand(),
			exportCommand(),
			validateCommand(),
			examplesCommand(),
			generateCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
