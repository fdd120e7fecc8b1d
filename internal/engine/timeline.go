package engine

import (
	"sync"

	"github.com/code-animator/backend/internal/models"
)

// Timeline caches one resolved snapshot per step index of a plan.
// Snapshots are built incrementally on first access and handed out as deep copies.
type Timeline struct {
	plan *models.AnimationPlan

	mu        sync.Mutex
	snapshots [][]models.Element // index i holds the state at step i-1
}

// NewTimeline creates a timeline for plan. The plan must not be modified afterwards.
func NewTimeline(plan *models.AnimationPlan) *Timeline {
	return &Timeline{plan: plan}
}

// Plan returns the plan backing the timeline.
func (t *Timeline) Plan() *models.AnimationPlan {
	return t.plan
}

// Len returns the number of steps.
func (t *Timeline) Len() int {
	return len(t.plan.Steps)
}

// At returns the resolved elements at stepIndex. It is equivalent to Resolve.
func (t *Timeline) At(stepIndex int) []models.Element {
	last := ClampStep(stepIndex, len(t.plan.Steps))

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.snapshots) == 0 {
		t.snapshots = append(t.snapshots, cloneElements(t.plan.Elements))
	}
	for len(t.snapshots) <= last+1 {
		prev := t.snapshots[len(t.snapshots)-1]
		next := cloneElements(prev)
		Apply(next, t.plan.Steps[len(t.snapshots)-1])
		t.snapshots = append(t.snapshots, next)
	}
	return cloneElements(t.snapshots[last+1])
}

// Frame assembles a renderer-ready frame for state.
func (t *Timeline) Frame(state models.PlayerState) models.Frame {
	return models.Frame{
		State:    state,
		Scene:    t.plan.Scene,
		Elements: t.At(state.CurrentStep),
	}
}
