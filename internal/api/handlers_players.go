// handlers_players.go - Player session and control surface handlers
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/metrics"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/narration"
	"github.com/code-animator/backend/internal/parser"
	"github.com/code-animator/backend/internal/render"
	"github.com/code-animator/backend/internal/session"
	"github.com/code-animator/backend/internal/storage"
)

const (
	minFrameScale = 0.25
	maxFrameScale = 4
)

// PlayerHandlerImpl implements the PlayerHandler interface
type PlayerHandlerImpl struct {
	store              storage.Store
	library            *library.Library
	players            *session.Manager
	metrics            *metrics.PlayerMetrics
	narrationByDefault bool
}

// NewPlayerHandler creates a new player handler instance
func NewPlayerHandler(deps *Dependencies) PlayerHandler {
	return &PlayerHandlerImpl{
		store:              deps.Store,
		library:            deps.Library,
		players:            deps.Players,
		metrics:            deps.Metrics,
		narrationByDefault: deps.NarrationByDefault,
	}
}

// HandleCreatePlayer starts a player for a stored plan, an example or an inline document
func (h *PlayerHandlerImpl) HandleCreatePlayer(c echo.Context) error {
	var req planSourceRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	src, err := h.resolvePlan(req)
	if err != nil {
		return err
	}

	p := h.players.Create(src.planID, src.title, src.plan)
	if h.narrationByDefault {
		p.Controller.SetNarration(true)
	}
	if h.metrics != nil {
		h.metrics.RecordPlayerCreated(c.Request().Context(), string(src.source))
	}

	info, _ := h.players.Info(p.ID)
	return c.JSON(http.StatusCreated, playerResponse{PlayerSession: info, Frame: p.Frame()})
}

// HandleListPlayers returns every active player
func (h *PlayerHandlerImpl) HandleListPlayers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.players.List())
}

// HandleGetPlayer returns the state of one player
func (h *PlayerHandlerImpl) HandleGetPlayer(c echo.Context) error {
	p, err := h.player(c)
	if err != nil {
		return err
	}
	info, _ := h.players.Info(p.ID)
	return c.JSON(http.StatusOK, info)
}

// HandleDeletePlayer stops a player and releases it
func (h *PlayerHandlerImpl) HandleDeletePlayer(c echo.Context) error {
	id := c.Param("id")
	if !h.players.Close(id) {
		return NewNotFoundError("player", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandlePlayerKeepAlive extends player lifetime for active viewing
func (h *PlayerHandlerImpl) HandlePlayerKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if ok := h.players.Touch(id); !ok {
		return NewNotFoundError("player", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleLoadPlan swaps the plan of a player and rewinds it
func (h *PlayerHandlerImpl) HandleLoadPlan(c echo.Context) error {
	p, err := h.player(c)
	if err != nil {
		return err
	}

	var req planSourceRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	src, err := h.resolvePlan(req)
	if err != nil {
		return err
	}

	p.Load(src.planID, src.title, src.plan)
	info, _ := h.players.Info(p.ID)
	return c.JSON(http.StatusOK, playerResponse{PlayerSession: info, Frame: p.Frame()})
}

// HandleControl applies one VCR action. Scrub targets are clamped to the timeline.
func (h *PlayerHandlerImpl) HandleControl(c echo.Context) error {
	p, err := h.player(c)
	if err != nil {
		return err
	}

	var req controlRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := p.Control(session.Control(req.Action), req.stepOrZero()); err != nil {
		if errors.Is(err, session.ErrUnknownControl) {
			return NewBadRequestError("unknown control action", err)
		}
		return NewInternalError("control failed", err)
	}
	return c.JSON(http.StatusOK, p.Controller.State())
}

// HandleGetFrame returns the resolved elements of the current step as JSON
func (h *PlayerHandlerImpl) HandleGetFrame(c echo.Context) error {
	return h.renderFrame(c, render.JSONRenderer{}, string(render.FormatJSON))
}

// HandleGetFrameMsgpack returns the current frame msgpack-encoded
func (h *PlayerHandlerImpl) HandleGetFrameMsgpack(c echo.Context) error {
	return h.renderFrame(c, render.MsgpackRenderer{}, string(render.FormatMsgpack))
}

// HandleGetFramePNG rasterises the current frame. ?scale= resizes the image.
func (h *PlayerHandlerImpl) HandleGetFramePNG(c echo.Context) error {
	r := render.NewPNGRenderer()
	if v := c.QueryParam("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale < minFrameScale || scale > maxFrameScale {
			return NewValidationError("scale")
		}
		r.Scale = scale
	}
	return h.renderFrame(c, r, string(render.FormatPNG))
}

// HandleGetFrameText returns a plain-text outline of the current frame
func (h *PlayerHandlerImpl) HandleGetFrameText(c echo.Context) error {
	r := render.TextRenderer{ShowHidden: c.QueryParam("hidden") == "true"}
	return h.renderFrame(c, r, string(render.FormatText))
}

// HandleSetVoices offers the client's speech voices to the narration coordinator
func (h *PlayerHandlerImpl) HandleSetVoices(c echo.Context) error {
	p, err := h.player(c)
	if err != nil {
		return err
	}

	var req voicesRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	p.Narrator.SetVoices(req.Voices)
	voice, chosen := p.Narrator.Voice()
	return c.JSON(http.StatusOK, voicesResponse{Chosen: chosen, Voice: voice})
}

func (h *PlayerHandlerImpl) renderFrame(c echo.Context, r render.Renderer, format string) error {
	p, err := h.player(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, p.Frame()); err != nil {
		return NewBadRequestError("frame cannot be rendered", err)
	}
	if h.metrics != nil {
		h.metrics.RecordFrame(c.Request().Context(), format)
	}
	return c.Blob(http.StatusOK, r.ContentType(), buf.Bytes())
}

// player looks up the player named by the :id parameter and marks it as used.
func (h *PlayerHandlerImpl) player(c echo.Context) (*session.Player, error) {
	id := c.Param("id")
	if id == "" {
		return nil, NewValidationError("id")
	}
	p, ok := h.players.Get(id)
	if !ok {
		return nil, NewNotFoundError("player", id)
	}
	h.players.Touch(id)
	return p, nil
}

type resolvedPlan struct {
	planID string
	title  string
	source models.PlanSource
	plan   *models.AnimationPlan
}

// resolvePlan loads the plan named by exactly one of the request's sources.
func (h *PlayerHandlerImpl) resolvePlan(req planSourceRequest) (*resolvedPlan, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	switch {
	case req.PlanID != "":
		stored, err := h.store.Get(req.PlanID)
		if err != nil {
			return nil, storeError(err, req.PlanID)
		}
		return &resolvedPlan{
			planID: stored.ID,
			title:  firstNonEmpty(req.Title, stored.Title),
			source: stored.Source,
			plan:   stored.Plan,
		}, nil

	case req.Example != "":
		if h.library == nil {
			return nil, NewNotFoundError("example", req.Example)
		}
		ex, ok := h.library.Get(req.Example)
		if !ok {
			return nil, NewNotFoundError("example", req.Example)
		}
		return &resolvedPlan{
			title:  firstNonEmpty(req.Title, ex.Title),
			source: models.PlanSourceExample,
			plan:   ex.Plan,
		}, nil
	}

	plan, err := parser.Decode("inline.json", req.Plan)
	if err != nil {
		return nil, NewPlanValidationError(err)
	}
	return &resolvedPlan{
		title:  firstNonEmpty(req.Title, "Untitled animation"),
		source: models.PlanSourceUpload,
		plan:   plan,
	}, nil
}

// Request/response types

type planSourceRequest struct {
	PlanID  string          `json:"planId,omitempty"`
	Example string          `json:"example,omitempty"`
	Plan    json.RawMessage `json:"plan,omitempty"`
	Title   string          `json:"title,omitempty"`
}

func (r *planSourceRequest) validate() error {
	n := 0
	if r.PlanID != "" {
		n++
	}
	if r.Example != "" {
		n++
	}
	if len(r.Plan) > 0 && string(r.Plan) != "null" {
		n++
	}
	if n != 1 {
		return NewValidationError("exactly one of planId, example or plan")
	}
	return nil
}

type controlRequest struct {
	Action string `json:"action"`
	Step   *int   `json:"step,omitempty"`
}

func (r *controlRequest) validate() error {
	if r.Action == "" {
		return NewValidationError("action")
	}
	if session.Control(r.Action) == session.ControlScrub && r.Step == nil {
		return NewValidationError("step")
	}
	return nil
}

func (r *controlRequest) stepOrZero() int {
	if r.Step == nil {
		return 0
	}
	return *r.Step
}

type voicesRequest struct {
	Voices []narration.Voice `json:"voices"`
}

type voicesResponse struct {
	Chosen bool            `json:"chosen"`
	Voice  narration.Voice `json:"voice"`
}

type playerResponse struct {
	models.PlayerSession
	Frame models.Frame `json:"frame"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
