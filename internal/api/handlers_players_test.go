// handlers_players_test.go - Tests for player handlers
package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/metrics"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/parser"
	"github.com/code-animator/backend/internal/playback"
	"github.com/code-animator/backend/internal/session"
	"github.com/code-animator/backend/internal/testutil"
)

type playerFixture struct {
	handler PlayerHandler
	store   *testutil.MockStorage
	players *session.Manager
	clock   *testutil.FakeClock
	deps    *Dependencies
}

func newPlayerFixture(t *testing.T) *playerFixture {
	t.Helper()
	lib, err := library.Load()
	require.NoError(t, err)
	pm, err := metrics.NewPlayerMetrics()
	require.NoError(t, err)

	clock := testutil.NewFakeClock()
	players := session.NewManager(session.Options{
		Clock:     clock,
		Observers: []playback.Observer{pm.Observe},
	})
	t.Cleanup(players.Shutdown)

	store := testutil.NewMockStorage()
	deps := &Dependencies{
		Store:   store,
		Players: players,
		Library: lib,
		Metrics: pm,
	}
	return &playerFixture{
		handler: NewPlayerHandler(deps),
		store:   store,
		players: players,
		clock:   clock,
		deps:    deps,
	}
}

// createPlayer creates a player from body and returns its id.
func (f *playerFixture) createPlayer(t *testing.T, body string) playerResponse {
	t.Helper()
	c, rec := newTestContext(http.MethodPost, "/api/players", jsonBody(body), echo.MIMEApplicationJSON)
	require.NoError(t, f.handler.HandleCreatePlayer(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp playerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (f *playerFixture) control(t *testing.T, id, body string) models.PlayerState {
	t.Helper()
	c, rec := newTestContext(http.MethodPost, "/api/players/"+id+"/controls", jsonBody(body), echo.MIMEApplicationJSON, "id", id)
	require.NoError(t, f.handler.HandleControl(c))

	var state models.PlayerState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}

func TestCreatePlayer_Sources(t *testing.T) {
	f := newPlayerFixture(t)
	plan, err := parser.Decode("p.json", []byte(testPlanJSON))
	require.NoError(t, err)
	f.store.AddPlan("stored-1", "Stored demo", plan)

	t.Run("example", func(t *testing.T) {
		resp := f.createPlayer(t, `{"example":"bubble-sort"}`)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "Bubble Sort", resp.Title)
		assert.Equal(t, -1, resp.State.CurrentStep)
		assert.Equal(t, 9, resp.State.TotalSteps)
		assert.Equal(t, "Initial state. Press play to begin.", resp.State.Description)
		assert.Equal(t, "0 / 9", resp.State.Counter)
		assert.Equal(t, 800.0, resp.Frame.Scene.Width)
	})

	t.Run("stored plan", func(t *testing.T) {
		resp := f.createPlayer(t, `{"planId":"stored-1"}`)
		assert.Equal(t, "stored-1", resp.PlanID)
		assert.Equal(t, "Stored demo", resp.Title)
		assert.Len(t, resp.Frame.Elements, 2)
	})

	t.Run("inline document", func(t *testing.T) {
		resp := f.createPlayer(t, `{"title":"Inline","plan":`+testPlanJSON+`}`)
		assert.Equal(t, "Inline", resp.Title)
		assert.Equal(t, 3, resp.State.TotalSteps)
	})

	assert.Equal(t, 3, f.players.Count())
}

func TestCreatePlayer_Rejects(t *testing.T) {
	f := newPlayerFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"no source", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"two sources", `{"planId":"x","example":"bubble-sort"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown plan", `{"planId":"missing"}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown example", `{"example":"heap-sort"}`, http.StatusNotFound, "NOT_FOUND"},
		{"invalid inline plan", `{"plan":{"scene":{"width":1,"height":1},"elements":[]}}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodPost, "/api/players", jsonBody(tt.body), echo.MIMEApplicationJSON)
			requireAPIError(t, f.handler.HandleCreatePlayer(c), tt.status, tt.code)
		})
	}
	assert.Equal(t, 0, f.players.Count())
}

func TestCreatePlayer_NarrationByDefault(t *testing.T) {
	f := newPlayerFixture(t)
	f.deps.NarrationByDefault = true
	h := NewPlayerHandler(f.deps)

	c, rec := newTestContext(http.MethodPost, "/api/players", jsonBody(`{"example":"bubble-sort"}`), echo.MIMEApplicationJSON)
	require.NoError(t, h.HandleCreatePlayer(c))
	assert.Contains(t, rec.Body.String(), `"narrationEnabled":true`)
}

func TestControl(t *testing.T) {
	f := newPlayerFixture(t)
	id := f.createPlayer(t, `{"plan":`+testPlanJSON+`}`).ID

	state := f.control(t, id, `{"action":"next"}`)
	assert.Equal(t, 0, state.CurrentStep)
	assert.Equal(t, "show a", state.Description)
	assert.Equal(t, "1 / 3", state.Counter)

	state = f.control(t, id, `{"action":"scrub","step":99}`)
	assert.Equal(t, 2, state.CurrentStep)
	assert.False(t, state.IsPlaying)

	state = f.control(t, id, `{"action":"scrub","step":-7}`)
	assert.Equal(t, -1, state.CurrentStep)

	state = f.control(t, id, `{"action":"playPause"}`)
	assert.True(t, state.IsPlaying)

	// Auto-advance uses the 1500ms default for the initial pseudo-step.
	f.clock.Advance(1500 * time.Millisecond)
	p, ok := f.players.Get(id)
	require.True(t, ok)
	assert.Equal(t, 0, p.Controller.State().CurrentStep)

	state = f.control(t, id, `{"action":"reset"}`)
	assert.Equal(t, -1, state.CurrentStep)
	assert.False(t, state.IsPlaying)

	state = f.control(t, id, `{"action":"toggleNarration"}`)
	assert.True(t, state.NarrationEnabled)

	t.Run("rejects", func(t *testing.T) {
		c, _ := newTestContext(http.MethodPost, "/", jsonBody(`{"action":"rewind"}`), echo.MIMEApplicationJSON, "id", id)
		requireAPIError(t, f.handler.HandleControl(c), http.StatusBadRequest, "BAD_REQUEST")

		c, _ = newTestContext(http.MethodPost, "/", jsonBody(`{"action":"scrub"}`), echo.MIMEApplicationJSON, "id", id)
		requireAPIError(t, f.handler.HandleControl(c), http.StatusBadRequest, "VALIDATION_ERROR")

		c, _ = newTestContext(http.MethodPost, "/", jsonBody(`{"action":"next"}`), echo.MIMEApplicationJSON, "id", "ghost")
		requireAPIError(t, f.handler.HandleControl(c), http.StatusNotFound, "NOT_FOUND")
	})
}

func TestFrames(t *testing.T) {
	f := newPlayerFixture(t)
	id := f.createPlayer(t, `{"plan":`+testPlanJSON+`}`).ID
	f.control(t, id, `{"action":"scrub","step":1}`)

	t.Run("json", func(t *testing.T) {
		c, rec := newTestContext(http.MethodGet, "/", nil, "", "id", id)
		require.NoError(t, f.handler.HandleGetFrame(c))

		var frame models.Frame
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &frame))
		assert.Equal(t, 1, frame.State.CurrentStep)
		require.Len(t, frame.Elements, 2)
		require.NotNil(t, frame.Elements[0].Style.Left)
		assert.Equal(t, "60px", *frame.Elements[0].Style.Left)
		require.NotNil(t, frame.Elements[0].Style.Opacity)
		assert.Equal(t, 1.0, *frame.Elements[0].Style.Opacity)
	})

	t.Run("msgpack", func(t *testing.T) {
		c, rec := newTestContext(http.MethodGet, "/", nil, "", "id", id)
		require.NoError(t, f.handler.HandleGetFrameMsgpack(c))
		assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

		var decoded map[string]interface{}
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
		assert.Contains(t, decoded, "elements")
		assert.Contains(t, decoded, "state")
	})

	t.Run("png", func(t *testing.T) {
		c, rec := newTestContext(http.MethodGet, "/?scale=2", nil, "", "id", id)
		require.NoError(t, f.handler.HandleGetFramePNG(c))
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

		img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 400, img.Bounds().Dx())
		assert.Equal(t, 200, img.Bounds().Dy())

		c, _ = newTestContext(http.MethodGet, "/?scale=100", nil, "", "id", id)
		requireAPIError(t, f.handler.HandleGetFramePNG(c), http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("text", func(t *testing.T) {
		c, rec := newTestContext(http.MethodGet, "/", nil, "", "id", id)
		require.NoError(t, f.handler.HandleGetFrameText(c))
		assert.Contains(t, rec.Body.String(), "[2 / 3] move a")
	})
}

func TestPlayerLifecycle(t *testing.T) {
	f := newPlayerFixture(t)
	id := f.createPlayer(t, `{"example":"bubble-sort"}`).ID

	c, rec := newTestContext(http.MethodGet, "/", nil, "", "id", id)
	require.NoError(t, f.handler.HandleGetPlayer(c))
	assert.Contains(t, rec.Body.String(), `"title":"Bubble Sort"`)

	c, rec = newTestContext(http.MethodGet, "/api/players", nil, "")
	require.NoError(t, f.handler.HandleListPlayers(c))
	assert.Contains(t, rec.Body.String(), id)

	c, rec = newTestContext(http.MethodPost, "/", nil, "", "id", id)
	require.NoError(t, f.handler.HandlePlayerKeepAlive(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	f.control(t, id, `{"action":"next"}`)
	c, rec = newTestContext(http.MethodPost, "/", jsonBody(`{"example":"javascript-closures"}`), echo.MIMEApplicationJSON, "id", id)
	require.NoError(t, f.handler.HandleLoadPlan(c))
	var resp playerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "JavaScript Closures", resp.Title)
	assert.Equal(t, -1, resp.State.CurrentStep)
	assert.Equal(t, 8, resp.State.TotalSteps)

	c, rec = newTestContext(http.MethodDelete, "/", nil, "", "id", id)
	require.NoError(t, f.handler.HandleDeletePlayer(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newTestContext(http.MethodPost, "/", nil, "", "id", id)
	requireAPIError(t, f.handler.HandlePlayerKeepAlive(c), http.StatusNotFound, "NOT_FOUND")
	c, _ = newTestContext(http.MethodDelete, "/", nil, "", "id", id)
	requireAPIError(t, f.handler.HandleDeletePlayer(c), http.StatusNotFound, "NOT_FOUND")
}

func TestSetVoices(t *testing.T) {
	f := newPlayerFixture(t)
	id := f.createPlayer(t, `{"example":"bubble-sort"}`).ID

	body := `{"voices":[{"name":"Alex","lang":"en-US","localService":true},{"name":"Google US English","lang":"en-US"}]}`
	c, rec := newTestContext(http.MethodPost, "/", jsonBody(body), echo.MIMEApplicationJSON, "id", id)
	require.NoError(t, f.handler.HandleSetVoices(c))
	assert.Contains(t, rec.Body.String(), `"chosen":true`)
	assert.Contains(t, rec.Body.String(), `"name":"Google US English"`)

	// The voice is chosen once.
	c, rec = newTestContext(http.MethodPost, "/", jsonBody(`{"voices":[{"name":"Other","lang":"en-GB"}]}`), echo.MIMEApplicationJSON, "id", id)
	require.NoError(t, f.handler.HandleSetVoices(c))
	assert.Contains(t, rec.Body.String(), `"name":"Google US English"`)
}
