package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/code-animator/backend/internal/generator"
	"github.com/code-animator/backend/internal/models"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Ask Gemini for a plan explaining a topic",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "api-key",
				Sources:  cli.EnvVars("GEMINI_API_KEY", "API_KEY"),
				Required: true,
				Usage:    "Gemini API key",
			},
			&cli.StringFlag{
				Name:    "model",
				Value:   generator.DefaultModel,
				Sources: cli.EnvVars("GEMINI_MODEL"),
				Usage:   "Gemini model name",
			},
			&cli.IntFlag{
				Name:  "steps",
				Value: generator.DefaultSteps,
				Usage: fmt.Sprintf("Number of steps (%d-%d)", generator.MinSteps, generator.MaxSteps),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 90 * time.Second,
				Usage: "Request timeout",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the plan to this file (.json, .yaml or .yml) instead of stdout",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if prompt == "" {
				return fmt.Errorf("a prompt is required")
			}

			gen, err := generator.NewGemini(ctx, cmd.String("api-key"),
				generator.WithModel(cmd.String("model")),
				generator.WithTimeout(cmd.Duration("timeout")),
			)
			if err != nil {
				return err
			}

			plan, err := gen.Generate(ctx, prompt, generator.ClampSteps(int(cmd.Int("steps"))))
			if err != nil {
				return fmt.Errorf("%s", generator.UserMessage(err))
			}

			path := cmd.String("out")
			if path == "" {
				return writePlan(stdout(cmd), plan, "json")
			}
			f, err := os.Create(path)
			if err != nil {
				return goerr.Wrap(err, "failed to create output file", goerr.V("path", path))
			}
			defer f.Close()
			if err := writePlan(f, plan, planFormat(path)); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Wrote %d steps to %s\n", plan.TotalSteps(), path)
			return nil
		},
	}
}

// planFormat picks the document format from a file name.
func planFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// writePlan encodes plan as indented JSON or YAML.
func writePlan(w io.Writer, plan *models.AnimationPlan, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return goerr.Wrap(err, "failed to encode plan as YAML")
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return goerr.Wrap(err, "failed to encode plan as JSON")
	}
	return nil
}
