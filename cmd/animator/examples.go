package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/code-animator/backend/internal/library"
)

func examplesCommand() *cli.Command {
	return &cli.Command{
		Name:  "examples",
		Usage: "List the built-in example plans",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Sources: cli.EnvVars("ANIMATOR_EXAMPLES_DIR"),
				Usage:   "Directory with additional example plans",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, err := library.LoadWithDir(cmd.String("dir"))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tTITLE\tSTEPS")
			for _, ex := range lib.List() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", library.Slug(ex.Title), ex.Title, ex.Plan.TotalSteps())
			}
			return tw.Flush()
		},
	}
}
