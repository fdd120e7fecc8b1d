package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/code-animator/backend/internal/engine"
	"github.com/code-animator/backend/internal/parser"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check plan documents and report problems",
		ArgsUsage: "<file>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return fmt.Errorf("at least one plan file is required")
			}

			out := stdout(cmd)
			failed := 0
			for _, file := range files {
				if !validateFile(out, file) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d plans are invalid", failed, len(files))
			}
			return nil
		},
	}
}

// validateFile prints a report for one file and returns whether it decoded.
func validateFile(out io.Writer, file string) bool {
	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", file, err)
		return false
	}

	plan, err := parser.Decode(file, data)
	if err != nil {
		var verr *parser.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "%s: invalid\n", file)
			for _, issue := range verr.Issues {
				path := issue.Path
				if path == "" {
					path = "/"
				}
				fmt.Fprintf(out, "  %s: %s\n", path, issue.Reason)
			}
			return false
		}
		fmt.Fprintf(out, "%s: %v\n", file, err)
		return false
	}

	fmt.Fprintf(out, "%s: ok (%d steps, %d elements)\n", file, plan.TotalSteps(), len(plan.Elements))
	if dups := engine.DuplicateIDs(plan); len(dups) > 0 {
		fmt.Fprintf(out, "  warning: duplicate element ids: %s\n", strings.Join(dups, ", "))
	}
	if dangling := engine.DanglingReferences(plan); len(dangling) > 0 {
		fmt.Fprintf(out, "  warning: actions target unknown elements: %s\n", strings.Join(dangling, ", "))
	}
	return true
}
