// Package storage persists animation plans and the generation history.
package storage

import (
	"errors"

	"github.com/code-animator/backend/internal/models"
)

// ErrNotFound is returned when a plan id is unknown.
var ErrNotFound = errors.New("plan not found")

// Store defines the interface for plan storage.
type Store interface {
	// Save stores plan. ID, CreatedAt and the counters of meta are filled in
	// when empty.
	Save(meta models.PlanInfo, plan *models.AnimationPlan) (*models.PlanInfo, error)
	Get(id string) (*models.StoredPlan, error)
	List(limit int) ([]*models.PlanInfo, error)
	Delete(id string) error
	Rename(id string, newTitle string) (*models.PlanInfo, error)
}

// GenerationLog records requests made to the plan generator.
type GenerationLog interface {
	LogGeneration(rec models.GenerationRecord) error
	ListGenerations(limit int) ([]models.GenerationRecord, error)
}

// prepareInfo fills the derived fields of meta for plan.
func prepareInfo(meta models.PlanInfo, plan *models.AnimationPlan, newID func() string) models.PlanInfo {
	info := models.NewPlanInfo(meta.ID, meta.Title, meta.Source, plan)
	if info.ID == "" {
		info.ID = newID()
	}
	if !meta.CreatedAt.IsZero() {
		info.CreatedAt = meta.CreatedAt
	}
	if info.Title == "" {
		info.Title = "Untitled animation"
	}
	if info.Source == "" {
		info.Source = models.PlanSourceUpload
	}
	info.Description = meta.Description
	info.Prompt = meta.Prompt
	return info
}
