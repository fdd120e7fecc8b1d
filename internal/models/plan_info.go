package models

import "time"

// PlanSource records where a stored plan came from.
type PlanSource string

const (
	PlanSourceExample   PlanSource = "example"
	PlanSourceUpload    PlanSource = "upload"
	PlanSourceGenerated PlanSource = "generated"
)

// PlanInfo represents metadata about a stored animation plan.
type PlanInfo struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Source       PlanSource `json:"source"`
	Prompt       string     `json:"prompt,omitempty"` // only for generated plans
	StepCount    int        `json:"stepCount"`
	ElementCount int        `json:"elementCount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// StoredPlan pairs a plan document with its metadata.
type StoredPlan struct {
	PlanInfo
	Plan *AnimationPlan `json:"plan"`
}

// NewPlanInfo fills the counters of a PlanInfo from the plan itself.
func NewPlanInfo(id, title string, source PlanSource, plan *AnimationPlan) PlanInfo {
	return PlanInfo{
		ID:           id,
		Title:        title,
		Source:       source,
		StepCount:    plan.TotalSteps(),
		ElementCount: CountElements(plan.Elements),
		CreatedAt:    time.Now(),
	}
}

// CountElements counts elements including array children.
func CountElements(elements []Element) int {
	n := 0
	for _, el := range elements {
		n++
		n += CountElements(el.Children)
	}
	return n
}

// Example is a canned plan shipped with the server.
type Example struct {
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	Plan        *AnimationPlan `json:"plan" yaml:"plan"`
}

// GenerationRecord logs one request to the generation collaborator.
type GenerationRecord struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	NumSteps   int       `json:"numSteps"`
	PlanID     string    `json:"planId,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
