// handlers_examples.go - Example library handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/storage"
)

// ExampleHandlerImpl implements the ExampleHandler interface
type ExampleHandlerImpl struct {
	library *library.Library
	store   storage.Store
}

// NewExampleHandler creates a new example handler instance
func NewExampleHandler(lib *library.Library, store storage.Store) ExampleHandler {
	return &ExampleHandlerImpl{
		library: lib,
		store:   store,
	}
}

// exampleSummary is the list view of one example.
type exampleSummary struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	StepCount    int    `json:"stepCount"`
	ElementCount int    `json:"elementCount"`
}

func summarize(ex models.Example) exampleSummary {
	return exampleSummary{
		Slug:         library.Slug(ex.Title),
		Title:        ex.Title,
		Description:  ex.Description,
		StepCount:    ex.Plan.TotalSteps(),
		ElementCount: models.CountElements(ex.Plan.Elements),
	}
}

// HandleListExamples returns the canned examples in display order
func (h *ExampleHandlerImpl) HandleListExamples(c echo.Context) error {
	out := []exampleSummary{}
	if h.library != nil {
		for _, ex := range h.library.List() {
			out = append(out, summarize(ex))
		}
	}
	return c.JSON(http.StatusOK, out)
}

// HandleGetExample returns one example including its plan
func (h *ExampleHandlerImpl) HandleGetExample(c echo.Context) error {
	ex, err := h.lookup(c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ex)
}

// HandleSaveExample copies an example into plan storage so it can be renamed
// and listed alongside uploads
func (h *ExampleHandlerImpl) HandleSaveExample(c echo.Context) error {
	ex, err := h.lookup(c.Param("slug"))
	if err != nil {
		return err
	}

	info, err := h.store.Save(models.PlanInfo{
		Title:       ex.Title,
		Description: ex.Description,
		Source:      models.PlanSourceExample,
	}, ex.Plan)
	if err != nil {
		return NewInternalError("failed to save plan", err)
	}
	return c.JSON(http.StatusCreated, info)
}

func (h *ExampleHandlerImpl) lookup(slug string) (models.Example, error) {
	if slug == "" {
		return models.Example{}, NewValidationError("slug")
	}
	if h.library == nil {
		return models.Example{}, NewNotFoundError("example", slug)
	}
	ex, ok := h.library.Get(slug)
	if !ok {
		return models.Example{}, NewNotFoundError("example", slug)
	}
	return ex, nil
}
