package models

import (
	"fmt"
	"time"
)

// PlayerState is the observable state of one playback controller.
type PlayerState struct {
	CurrentStep      int    `json:"currentStep"`
	TotalSteps       int    `json:"totalSteps"`
	IsPlaying        bool   `json:"isPlaying"`
	NarrationEnabled bool   `json:"narrationEnabled"`
	Description      string `json:"description"`
	Counter          string `json:"counter"`
}

// StepCounter formats the "n / total" indicator shown next to the controls.
func StepCounter(currentStep, totalSteps int) string {
	return fmt.Sprintf("%d / %d", currentStep+1, totalSteps)
}

// Frame is a resolved snapshot ready for a renderer.
type Frame struct {
	State    PlayerState `json:"state"`
	Scene    Scene       `json:"scene"`
	Elements []Element   `json:"elements"`
}

// PlayerSession describes a server-side player bound to one plan.
type PlayerSession struct {
	ID           string      `json:"id"`
	PlanID       string      `json:"planId,omitempty"`
	Title        string      `json:"title"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastAccessed time.Time   `json:"lastAccessed"`
	State        PlayerState `json:"state"`
}

// PlanIssue represents a problem found while validating a plan document.
type PlanIssue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// StateAt builds the paused, narration-off state of plan at step.
func StateAt(plan *AnimationPlan, step int) PlayerState {
	total := plan.TotalSteps()
	return PlayerState{
		CurrentStep: step,
		TotalSteps:  total,
		Description: plan.Description(step),
		Counter:     StepCounter(step, total),
	}
}
