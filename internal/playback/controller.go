// Package playback implements the VCR-style state machine that walks an
// animation plan's timeline.
package playback

import (
	"sync"
	"time"

	"github.com/code-animator/backend/internal/models"
)

// Event describes one observed state transition. Manual is set for user
// controls (play, pause, next, prev, reset, scrub), which are reported even
// when they leave the state unchanged.
type Event struct {
	Prev        models.PlayerState
	Next        models.PlayerState
	PlanChanged bool
	Manual      bool
}

// StepChanged reports whether the current step moved.
func (e Event) StepChanged() bool {
	return e.Prev.CurrentStep != e.Next.CurrentStep
}

// Observer is notified synchronously after every transition that changed state
// and after every manual control.
// Observers run while the controller is locked and must not call back into it.
type Observer func(Event)

// Controller owns the current step, the playing flag and the narration flag of
// one player. All methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	clock Clock
	plan  *models.AnimationPlan

	currentStep      int
	isPlaying        bool
	narrationEnabled bool

	timer      Timer
	generation uint64
	closed     bool

	observers map[int]Observer
	nextObsID int
}

// NewController creates a paused controller at the initial step. A nil clock
// selects SystemClock.
func NewController(plan *models.AnimationPlan, clock Clock) *Controller {
	if clock == nil {
		clock = SystemClock
	}
	if plan == nil {
		plan = &models.AnimationPlan{}
	}
	return &Controller{
		clock:       clock,
		plan:        plan,
		currentStep: -1,
		observers:   make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns a function that removes it.
func (c *Controller) Subscribe(obs Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = obs
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Plan returns the plan currently loaded.
func (c *Controller) Plan() *models.AnimationPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan
}

// Snapshot returns the loaded plan together with the state taken against it.
func (c *Controller) Snapshot() (*models.AnimationPlan, models.PlayerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan, c.stateLocked()
}

// State returns a snapshot of the observable state.
func (c *Controller) State() models.PlayerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() models.PlayerState {
	s := models.StateAt(c.plan, c.currentStep)
	s.IsPlaying = c.isPlaying
	s.NarrationEnabled = c.narrationEnabled
	return s
}

// Load replaces the plan and re-initialises the timeline to the initial step, paused.
func (c *Controller) Load(plan *models.AnimationPlan) {
	if plan == nil {
		plan = &models.AnimationPlan{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	prev := c.stateLocked()
	c.plan = plan
	c.currentStep = -1
	c.isPlaying = false
	c.settleLocked(true)
	c.notifyLocked(Event{Prev: prev, PlanChanged: true})
}

// PlayPause toggles playback. At the end of the timeline it rewinds to the
// initial step and starts playing.
func (c *Controller) PlayPause() {
	c.transition(true, func() {
		if c.currentStep >= c.plan.TotalSteps()-1 {
			c.currentStep = -1
			c.isPlaying = true
			return
		}
		c.isPlaying = !c.isPlaying
	})
}

// Play starts playback unless it is already running.
func (c *Controller) Play() {
	c.transition(true, func() {
		if c.isPlaying {
			return
		}
		if c.currentStep >= c.plan.TotalSteps()-1 {
			c.currentStep = -1
		}
		c.isPlaying = true
	})
}

// Pause stops playback without moving.
func (c *Controller) Pause() {
	c.transition(true, func() {
		c.isPlaying = false
	})
}

// Next stops playback and moves one step forward, saturating at the last step.
func (c *Controller) Next() {
	c.transition(true, func() {
		c.isPlaying = false
		c.currentStep = min(c.currentStep+1, c.plan.TotalSteps()-1)
	})
}

// Prev stops playback and moves one step back, saturating at the initial step.
func (c *Controller) Prev() {
	c.transition(true, func() {
		c.isPlaying = false
		c.currentStep = max(c.currentStep-1, -1)
	})
}

// Reset stops playback and rewinds to the initial step.
func (c *Controller) Reset() {
	c.transition(true, func() {
		c.isPlaying = false
		c.currentStep = -1
	})
}

// Scrub stops playback and jumps to target. Callers are expected to pass an
// index in [-1, TotalSteps-1].
func (c *Controller) Scrub(target int) {
	c.transition(true, func() {
		c.isPlaying = false
		c.currentStep = target
	})
}

// ToggleNarration flips the narration flag.
func (c *Controller) ToggleNarration() {
	c.transition(false, func() {
		c.narrationEnabled = !c.narrationEnabled
	})
}

// SetNarration sets the narration flag.
func (c *Controller) SetNarration(enabled bool) {
	c.transition(false, func() {
		c.narrationEnabled = enabled
	})
}

// Close cancels any pending advance and drops all observers. The controller
// ignores every call afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelTimerLocked()
	c.closed = true
	c.observers = make(map[int]Observer)
}

func (c *Controller) transition(manual bool, mutate func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	prev := c.stateLocked()
	mutate()
	c.settleLocked(c.currentStep != prev.CurrentStep || c.isPlaying != prev.IsPlaying)
	c.notifyLocked(Event{Prev: prev, Manual: manual})
}

// settleLocked enforces the end-of-timeline stop and (re)arms the advance timer.
// The timer is only touched when the step or playing flag moved, or when forced.
func (c *Controller) settleLocked(rearm bool) {
	if !rearm {
		return
	}
	c.cancelTimerLocked()

	if !c.isPlaying {
		return
	}
	if c.currentStep >= c.plan.TotalSteps()-1 {
		c.isPlaying = false
		return
	}

	gen := c.generation
	delay := c.plan.StepDuration(c.currentStep)
	c.timer = c.clock.AfterFunc(delay, func() {
		c.advance(gen)
	})
}

func (c *Controller) cancelTimerLocked() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// advance is the timer callback. A callback armed for an older generation is stale.
func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation || !c.isPlaying {
		return
	}

	prev := c.stateLocked()
	c.timer = nil
	c.currentStep++
	c.settleLocked(true)
	c.notifyLocked(Event{Prev: prev})
}

func (c *Controller) notifyLocked(evt Event) {
	evt.Next = c.stateLocked()
	if !evt.PlanChanged && !evt.Manual && evt.Prev == evt.Next {
		return
	}
	for _, obs := range c.sortedObserversLocked() {
		obs(evt)
	}
}

// sortedObserversLocked returns observers in subscription order.
func (c *Controller) sortedObserversLocked() []Observer {
	out := make([]Observer, 0, len(c.observers))
	for id := 0; id < c.nextObsID; id++ {
		if obs, ok := c.observers[id]; ok {
			out = append(out, obs)
		}
	}
	return out
}
