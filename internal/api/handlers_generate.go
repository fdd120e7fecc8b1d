// handlers_generate.go - Plan generation handlers
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/code-animator/backend/internal/generator"
	"github.com/code-animator/backend/internal/metrics"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/storage"
)

// GenerateHandlerImpl implements the GenerateHandler interface
type GenerateHandlerImpl struct {
	generator   generator.Generator
	store       storage.Store
	generations storage.GenerationLog
	metrics     *metrics.PlayerMetrics
}

// NewGenerateHandler creates a new generation handler instance. gen may be nil
// when no API key is configured; generations may be nil to skip the history.
func NewGenerateHandler(gen generator.Generator, store storage.Store, generations storage.GenerationLog, pm *metrics.PlayerMetrics) GenerateHandler {
	return &GenerateHandlerImpl{
		generator:   gen,
		store:       store,
		generations: generations,
		metrics:     pm,
	}
}

// HandleGenerate asks the generator for a plan, stores it and returns it
func (h *GenerateHandlerImpl) HandleGenerate(c echo.Context) error {
	if h.generator == nil {
		return NewServiceUnavailableError("plan generation is not configured (set GEMINI_API_KEY)")
	}

	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	prompt := strings.TrimSpace(req.Prompt)
	numSteps := generator.ClampSteps(req.NumSteps)
	ctx := c.Request().Context()

	start := time.Now()
	plan, genErr := h.generator.Generate(ctx, prompt, numSteps)
	elapsed := time.Since(start)

	rec := models.GenerationRecord{
		Prompt:     prompt,
		NumSteps:   numSteps,
		DurationMs: elapsed.Milliseconds(),
	}
	if h.metrics != nil {
		h.metrics.RecordGeneration(ctx, numSteps, generator.ErrorType(genErr), elapsed)
	}

	if genErr != nil {
		msg := generator.UserMessage(genErr)
		rec.Error = msg
		h.logGeneration(rec)
		fmt.Printf("[Generate] Failed after %v: %v\n", elapsed, genErr)
		return NewGenerationError(msg)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = titleFromPrompt(prompt)
	}
	info, err := h.store.Save(models.PlanInfo{
		Title:  title,
		Source: models.PlanSourceGenerated,
		Prompt: prompt,
	}, plan)
	if err != nil {
		return NewInternalError("failed to save generated plan", err)
	}

	rec.PlanID = info.ID
	h.logGeneration(rec)
	fmt.Printf("[Generate] Plan %s: %d steps, %d elements in %v\n",
		shortID(info.ID), info.StepCount, info.ElementCount, elapsed)

	return c.JSON(http.StatusCreated, models.StoredPlan{PlanInfo: *info, Plan: plan})
}

// HandleListGenerations returns recent generation requests, newest first
func (h *GenerateHandlerImpl) HandleListGenerations(c echo.Context) error {
	if h.generations == nil {
		return c.JSON(http.StatusOK, []models.GenerationRecord{})
	}

	records, err := h.generations.ListGenerations(queryInt(c, "limit", 50))
	if err != nil {
		return NewInternalError("failed to list generations", err)
	}
	if records == nil {
		records = []models.GenerationRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (h *GenerateHandlerImpl) logGeneration(rec models.GenerationRecord) {
	if h.generations == nil {
		return
	}
	if err := h.generations.LogGeneration(rec); err != nil {
		fmt.Printf("[Generate] Failed to record generation: %v\n", err)
	}
}

// Request types

type generateRequest struct {
	Prompt   string `json:"prompt"`
	NumSteps int    `json:"numSteps"`
	Title    string `json:"title,omitempty"`
}

func (r *generateRequest) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewValidationError("prompt")
	}
	return nil
}

// titleFromPrompt shortens prompt to a display title.
func titleFromPrompt(prompt string) string {
	const maxLen = 60
	runes := []rune(prompt)
	if len(runes) <= maxLen {
		return prompt
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
