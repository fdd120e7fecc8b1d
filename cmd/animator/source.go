package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/parser"
)

// loadPlan reads source as a plan file, falling back to a built-in example
// looked up by slug or title.
func loadPlan(source string) (string, *models.AnimationPlan, error) {
	if source == "" {
		return "", nil, fmt.Errorf("a plan file or example name is required")
	}

	if _, err := os.Stat(source); err == nil {
		data, err := os.ReadFile(source)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		plan, err := parser.Decode(source, data)
		if err != nil {
			return "", nil, err
		}
		return source, plan, nil
	}

	lib, err := library.Load()
	if err != nil {
		return "", nil, err
	}
	ex, ok := lib.Get(source)
	if !ok {
		return "", nil, fmt.Errorf("%s is neither a plan file nor a known example", source)
	}
	return ex.Title, ex.Plan, nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stdin(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
