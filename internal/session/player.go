package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/code-animator/backend/internal/engine"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/narration"
	"github.com/code-animator/backend/internal/playback"
)

// ErrUnknownControl is returned by Player.Control for an unrecognised action.
var ErrUnknownControl = errors.New("unknown control action")

// Control names one operation of the player control surface.
type Control string

const (
	ControlPlayPause       Control = "playPause"
	ControlPlay            Control = "play"
	ControlPause           Control = "pause"
	ControlNext            Control = "next"
	ControlPrev            Control = "prev"
	ControlReset           Control = "reset"
	ControlScrub           Control = "scrub"
	ControlToggleNarration Control = "toggleNarration"
	ControlNarrationOn     Control = "narrationOn"
	ControlNarrationOff    Control = "narrationOff"
)

// Player is one server-side viewer of a plan: a controller, the resolved
// timeline of its plan and the narration pipeline.
type Player struct {
	ID        string
	CreatedAt time.Time

	Controller *playback.Controller
	Narrator   *narration.Coordinator
	Relay      *narration.RelaySpeaker

	loadMu   sync.Mutex
	mu       sync.RWMutex
	planID   string
	title    string
	timeline *engine.Timeline

	lastAccessed time.Time // guarded by Manager.mu
	detach       []func()
	done         chan struct{}
}

func newPlayer(id, planID, title string, plan *models.AnimationPlan, clock playback.Clock, observers []playback.Observer) *Player {
	if plan == nil {
		plan = &models.AnimationPlan{}
	}
	relay := narration.NewRelaySpeaker()
	p := &Player{
		ID:           id,
		CreatedAt:    time.Now(),
		Controller:   playback.NewController(plan, clock),
		Narrator:     narration.NewCoordinator(relay),
		Relay:        relay,
		planID:       planID,
		title:        title,
		timeline:     engine.NewTimeline(plan),
		lastAccessed: time.Now(),
		done:         make(chan struct{}),
	}
	p.detach = append(p.detach, p.Narrator.Attach(p.Controller))
	for _, obs := range observers {
		p.detach = append(p.detach, p.Controller.Subscribe(obs))
	}
	return p
}

// PlanID returns the stored plan id, empty for inline documents.
func (p *Player) PlanID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.planID
}

// Title returns the display title of the loaded plan.
func (p *Player) Title() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.title
}

// Timeline returns the resolved timeline of the loaded plan.
func (p *Player) Timeline() *engine.Timeline {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.timeline
}

// Frame resolves the current state. The state and the elements always come
// from the same plan, even while Load is swapping it.
func (p *Player) Frame() models.Frame {
	plan, state := p.Controller.Snapshot()
	return p.timelineFor(plan).Frame(state)
}

func (p *Player) timelineFor(plan *models.AnimationPlan) *engine.Timeline {
	if tl := p.Timeline(); tl.Plan() == plan {
		return tl
	}
	// Load is between its two swaps
	return engine.NewTimeline(plan)
}

// Load swaps the plan and rewinds playback.
func (p *Player) Load(planID, title string, plan *models.AnimationPlan) {
	if plan == nil {
		plan = &models.AnimationPlan{}
	}
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	p.Controller.Load(plan)

	p.mu.Lock()
	p.planID = planID
	p.title = title
	p.timeline = engine.NewTimeline(plan)
	p.mu.Unlock()
}

// Control applies one control action. Scrub targets are clamped to the timeline.
func (p *Player) Control(action Control, step int) error {
	c := p.Controller
	switch action {
	case ControlPlayPause:
		c.PlayPause()
	case ControlPlay:
		c.Play()
	case ControlPause:
		c.Pause()
	case ControlNext:
		c.Next()
	case ControlPrev:
		c.Prev()
	case ControlReset:
		c.Reset()
	case ControlScrub:
		c.Scrub(engine.ClampStep(step, c.Plan().TotalSteps()))
	case ControlToggleNarration:
		c.ToggleNarration()
	case ControlNarrationOn:
		c.SetNarration(true)
	case ControlNarrationOff:
		c.SetNarration(false)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownControl, action)
	}
	return nil
}

// Info describes the player for API responses.
func (p *Player) Info() models.PlayerSession {
	p.mu.RLock()
	planID, title := p.planID, p.title
	p.mu.RUnlock()
	return models.PlayerSession{
		ID:        p.ID,
		PlanID:    planID,
		Title:     title,
		CreatedAt: p.CreatedAt,
		State:     p.Controller.State(),
	}
}

// Done is closed once the player has been torn down.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

func (p *Player) close() {
	for _, fn := range p.detach {
		fn()
	}
	p.Narrator.Stop()
	p.Controller.Close()
	close(p.done)
}
