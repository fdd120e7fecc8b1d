// handlers_plans.go - Stored plan handlers
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/code-animator/backend/internal/engine"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/parser"
	"github.com/code-animator/backend/internal/storage"
)

// maxPlanSize bounds uploaded plan documents.
const maxPlanSize = 4 << 20

// PlanHandlerImpl implements the PlanHandler interface
type PlanHandlerImpl struct {
	store storage.Store
}

// NewPlanHandler creates a new plan handler instance
func NewPlanHandler(store storage.Store) PlanHandler {
	return &PlanHandlerImpl{store: store}
}

// HandleListPlans returns stored plans, newest first
func (h *PlanHandlerImpl) HandleListPlans(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	plans, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list plans", err)
	}
	if plans == nil {
		plans = []*models.PlanInfo{}
	}
	return c.JSON(http.StatusOK, plans)
}

// HandleGetPlan returns one stored plan with its document
func (h *PlanHandlerImpl) HandleGetPlan(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	stored, err := h.store.Get(id)
	if err != nil {
		return storeError(err, id)
	}
	return c.JSON(http.StatusOK, stored)
}

// HandleUploadPlan accepts a JSON or YAML plan, either as a multipart "file"
// field or as the raw request body, validates it and stores it
func (h *PlanHandlerImpl) HandleUploadPlan(c echo.Context) error {
	doc, err := readPlanDocument(c)
	if err != nil {
		return err
	}

	plan, err := parser.Decode(doc.filename, doc.data)
	if err != nil {
		return NewPlanValidationError(err)
	}

	info, err := h.store.Save(models.PlanInfo{
		Title:       doc.title,
		Description: doc.description,
		Source:      models.PlanSourceUpload,
	}, plan)
	if err != nil {
		return NewInternalError("failed to save plan", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleRenamePlan changes the title of a stored plan
func (h *PlanHandlerImpl) HandleRenamePlan(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renamePlanRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	info, err := h.store.Rename(id, strings.TrimSpace(req.Title))
	if err != nil {
		return storeError(err, id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeletePlan removes a stored plan
func (h *PlanHandlerImpl) HandleDeletePlan(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return storeError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleValidatePlan checks a document without storing it. Structural problems
// are rejected; dangling references and duplicate ids are reported as warnings.
func (h *PlanHandlerImpl) HandleValidatePlan(c echo.Context) error {
	doc, err := readPlanDocument(c)
	if err != nil {
		return err
	}

	plan, err := parser.Decode(doc.filename, doc.data)
	if err != nil {
		return NewPlanValidationError(err)
	}

	info := models.NewPlanInfo("", doc.title, models.PlanSourceUpload, plan)
	return c.JSON(http.StatusOK, validatePlanResponse{
		Valid:              true,
		StepCount:          info.StepCount,
		ElementCount:       info.ElementCount,
		DuplicateIDs:       nonNil(engine.DuplicateIDs(plan)),
		DanglingReferences: nonNil(engine.DanglingReferences(plan)),
	})
}

// HandleGetSchema serves the JSON Schema plan documents are validated against
func (h *PlanHandlerImpl) HandleGetSchema(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/schema+json", parser.PlanSchema())
}

// Request/response types

type renamePlanRequest struct {
	Title string `json:"title"`
}

func (r *renamePlanRequest) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return NewValidationError("title")
	}
	return nil
}

type validatePlanResponse struct {
	Valid              bool     `json:"valid"`
	StepCount          int      `json:"stepCount"`
	ElementCount       int      `json:"elementCount"`
	DuplicateIDs       []string `json:"duplicateIds"`
	DanglingReferences []string `json:"danglingReferences"`
}

type planDocument struct {
	filename    string
	title       string
	description string
	data        []byte
}

// readPlanDocument extracts a plan document from a multipart upload or the raw body.
func readPlanDocument(c echo.Context) (*planDocument, error) {
	doc := &planDocument{
		title:       c.QueryParam("title"),
		description: c.QueryParam("description"),
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, NewValidationError("file")
		}
		if fh.Size > maxPlanSize {
			return nil, NewBadRequestError(fmt.Sprintf("plan document exceeds %d bytes", maxPlanSize), nil)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, NewBadRequestError("failed to open uploaded file", err)
		}
		defer f.Close()

		if doc.data, err = io.ReadAll(f); err != nil {
			return nil, NewBadRequestError("failed to read uploaded file", err)
		}
		doc.filename = fh.Filename
		if t := c.FormValue("title"); t != "" {
			doc.title = t
		}
		if d := c.FormValue("description"); d != "" {
			doc.description = d
		}
	} else {
		data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPlanSize+1))
		if err != nil {
			return nil, NewBadRequestError("failed to read request body", err)
		}
		if len(data) > maxPlanSize {
			return nil, NewBadRequestError(fmt.Sprintf("plan document exceeds %d bytes", maxPlanSize), nil)
		}
		doc.data = data
		doc.filename = c.QueryParam("filename")
		if strings.Contains(c.Request().Header.Get(echo.HeaderContentType), "yaml") && doc.filename == "" {
			doc.filename = "plan.yaml"
		}
	}

	if doc.title == "" && doc.filename != "" {
		doc.title = strings.TrimSuffix(filepath.Base(doc.filename), filepath.Ext(doc.filename))
	}
	return doc, nil
}

// storeError maps storage errors to API errors.
func storeError(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("plan", id)
	}
	return NewInternalError("storage failure", err)
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
