package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/code-animator/backend/internal/engine"
	"github.com/code-animator/backend/internal/render"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Render every step of a plan to files",
		ArgsUsage: "<plan file | example>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Required: true,
				Usage:    "Output directory",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: string(render.FormatPNG),
				Usage: "Frame format: png, json, msgpack or text",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Frames rendered in parallel (0 = one per CPU)",
			},
			&cli.BoolFlag{
				Name:  "initial",
				Usage: "Also export the state before the first step",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Prefix for every file name",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, plan, err := loadPlan(cmd.Args().First())
			if err != nil {
				return err
			}
			r, err := render.New(render.Format(cmd.String("format")))
			if err != nil {
				return err
			}

			paths, err := render.ExportTimeline(ctx, engine.NewTimeline(plan), r, cmd.String("out"), render.ExportOptions{
				Workers:        int(cmd.Int("workers")),
				IncludeInitial: cmd.Bool("initial"),
				Prefix:         cmd.String("prefix"),
			})
			if err != nil {
				return err
			}

			out := stdout(cmd)
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}
