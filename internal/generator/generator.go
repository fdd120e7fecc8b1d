// Package generator produces animation plans from natural-language prompts.
package generator

import (
	"context"

	"github.com/code-animator/backend/internal/models"
)

const (
	MinSteps     = 3
	MaxSteps     = 30
	DefaultSteps = 10
)

// Generator turns a prompt and a target step count into a plan.
type Generator interface {
	Generate(ctx context.Context, prompt string, numSteps int) (*models.AnimationPlan, error)
}

// ClampSteps bounds a requested step count to [MinSteps, MaxSteps]. Zero
// selects DefaultSteps.
func ClampSteps(n int) int {
	switch {
	case n == 0:
		return DefaultSteps
	case n < MinSteps:
		return MinSteps
	case n > MaxSteps:
		return MaxSteps
	}
	return n
}
