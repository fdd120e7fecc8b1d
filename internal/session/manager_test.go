package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/narration"
	"github.com/code-animator/backend/internal/playback"
	"github.com/code-animator/backend/internal/testutil"
)

func testPlan() *models.AnimationPlan {
	content := "start"
	moved := "40px"
	return &models.AnimationPlan{
		Scene: models.Scene{Width: 200, Height: 100},
		Elements: []models.Element{
			{ID: "box", Type: models.ElementTypeBox, Style: models.ElementStyle{Content: &content}},
		},
		Steps: []models.Step{
			{Description: "Show the box", Actions: []models.Action{{ElementID: "box", Type: models.ActionFadeIn}}},
			{Description: "Move the box", Actions: []models.Action{{ElementID: "box", Type: models.ActionUpdate, Payload: models.ElementStyle{Left: &moved}}}},
			{Description: "Hide the box", Actions: []models.Action{{ElementID: "box", Type: models.ActionFadeOut}}},
		},
	}
}

func newTestManager(t *testing.T, opts Options) (*Manager, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock()
	opts.Clock = clock
	m := NewManager(opts)
	t.Cleanup(m.Shutdown)
	return m, clock
}

func TestManager_CreateAndGet(t *testing.T) {
	m, _ := newTestManager(t, Options{})

	p := m.Create("plan-1", "Box demo", testPlan())
	if p.ID == "" {
		t.Fatal("Expected player ID")
	}

	got, ok := m.Get(p.ID)
	if !ok || got != p {
		t.Fatalf("Expected to find player %s", p.ID)
	}
	info, ok := m.Info(p.ID)
	if !ok {
		t.Fatal("Expected info")
	}
	if info.PlanID != "plan-1" || info.Title != "Box demo" {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.State.CurrentStep != -1 || info.State.TotalSteps != 3 || info.State.Counter != "0 / 3" {
		t.Errorf("Unexpected initial state %+v", info.State)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Expected missing player")
	}
}

func TestPlayer_FrameFollowsController(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	p := m.Create("", "inline", testPlan())

	frame := p.Frame()
	if frame.Scene.Width != 200 || len(frame.Elements) != 1 {
		t.Fatalf("Unexpected frame %+v", frame)
	}
	if frame.Elements[0].Style.Opacity != nil {
		t.Errorf("Expected initial element untouched")
	}

	p.Control(ControlNext, 0)
	p.Control(ControlNext, 0)
	frame = p.Frame()
	style := frame.Elements[0].Style
	if style.Opacity == nil || *style.Opacity != 1 {
		t.Errorf("Expected opacity 1 after FADE_IN")
	}
	if style.Left == nil || *style.Left != "40px" {
		t.Errorf("Expected left 40px after UPDATE")
	}
	if frame.State.Description != "Move the box" {
		t.Errorf("Expected step description, got %q", frame.State.Description)
	}
}

func TestPlayer_Control(t *testing.T) {
	m, clock := newTestManager(t, Options{})
	p := m.Create("", "controls", testPlan())

	tests := []struct {
		action  Control
		step    int
		want    int
		playing bool
	}{
		{ControlScrub, 1, 1, false},
		{ControlNext, 0, 2, false},
		{ControlNext, 0, 2, false},
		{ControlPrev, 0, 1, false},
		{ControlScrub, 99, 2, false},
		{ControlScrub, -5, -1, false},
		{ControlPlay, 0, -1, true},
		{ControlPause, 0, -1, false},
		{ControlPlayPause, 0, -1, true},
		{ControlReset, 0, -1, false},
	}
	for _, tt := range tests {
		if err := p.Control(tt.action, tt.step); err != nil {
			t.Fatalf("%s failed: %v", tt.action, err)
		}
		s := p.Controller.State()
		if s.CurrentStep != tt.want || s.IsPlaying != tt.playing {
			t.Errorf("After %s(%d): expected step=%d playing=%v, got %d %v",
				tt.action, tt.step, tt.want, tt.playing, s.CurrentStep, s.IsPlaying)
		}
	}
	if clock.Pending() != 0 {
		t.Errorf("Expected no pending timer after reset")
	}

	p.Control(ControlToggleNarration, 0)
	if !p.Controller.State().NarrationEnabled {
		t.Error("Expected narration enabled")
	}
	p.Control(ControlNarrationOff, 0)
	if p.Controller.State().NarrationEnabled {
		t.Error("Expected narration disabled")
	}
	p.Control(ControlNarrationOn, 0)
	if !p.Controller.State().NarrationEnabled {
		t.Error("Expected narration enabled")
	}

	if err := p.Control("spin", 0); !errors.Is(err, ErrUnknownControl) {
		t.Errorf("Expected ErrUnknownControl, got %v", err)
	}
}

func TestPlayer_AutoAdvanceNarratesThroughRelay(t *testing.T) {
	m, clock := newTestManager(t, Options{})
	p := m.Create("", "narrated", testPlan())

	var mu sync.Mutex
	var got []narration.SpeechCommand
	p.Relay.Listen(func(cmd narration.SpeechCommand) {
		mu.Lock()
		got = append(got, cmd)
		mu.Unlock()
	})

	p.Control(ControlNarrationOn, 0)
	p.Control(ControlPlay, 0)
	clock.Advance(1500 * time.Millisecond)

	if s := p.Controller.State(); s.CurrentStep != 0 || !s.IsPlaying {
		t.Fatalf("Expected to be playing at step 0, got %+v", s)
	}

	mu.Lock()
	defer mu.Unlock()
	var spoken []string
	for _, cmd := range got {
		if cmd.Type == narration.SpeechSpeak {
			spoken = append(spoken, cmd.Text)
		}
	}
	if len(spoken) != 1 || spoken[0] != "Show the box" {
		t.Errorf("Expected the first step to be spoken, got %v", spoken)
	}
	if got[len(got)-2].Type != narration.SpeechCancel {
		t.Errorf("Expected cancel before speak, got %+v", got)
	}
}

func TestPlayer_Load(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	p := m.Create("a", "first", testPlan())
	p.Control(ControlNext, 0)

	other := &models.AnimationPlan{Scene: models.Scene{Width: 10, Height: 10}, Elements: []models.Element{}, Steps: []models.Step{}}
	p.Load("b", "second", other)

	if p.PlanID() != "b" || p.Title() != "second" {
		t.Errorf("Expected plan metadata to change, got %s %s", p.PlanID(), p.Title())
	}
	s := p.Controller.State()
	if s.CurrentStep != -1 || s.TotalSteps != 0 {
		t.Errorf("Expected rewind onto the new plan, got %+v", s)
	}
	if frame := p.Frame(); frame.Scene.Width != 10 || len(frame.Elements) != 0 {
		t.Errorf("Expected frame of the new plan, got %+v", frame)
	}
}

func TestPlayer_FramePairsStateWithPlan(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	p := m.Create("a", "first", testPlan())
	p.Control(ControlNext, 0)

	// The controller already holds the new plan, the cached timeline does not.
	other := &models.AnimationPlan{Scene: models.Scene{Width: 10, Height: 10}, Elements: []models.Element{}, Steps: []models.Step{}}
	p.Controller.Load(other)

	frame := p.Frame()
	if frame.Scene.Width != 10 || len(frame.Elements) != 0 || frame.State.TotalSteps != 0 {
		t.Errorf("Expected state and elements of the new plan, got %+v", frame)
	}
	if frame.State.Description != models.InitialDescription {
		t.Errorf("Expected initial description, got %q", frame.State.Description)
	}
}

func TestPlayer_ConcurrentLoadAndFrame(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	p := m.Create("a", "first", testPlan())
	small := &models.AnimationPlan{Scene: models.Scene{Width: 10, Height: 10}, Elements: []models.Element{}, Steps: []models.Step{}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				p.Load("b", "small", small)
			} else {
				p.Load("a", "first", testPlan())
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			frame := p.Frame()
			if (frame.Scene.Width == 10) != (frame.State.TotalSteps == 0) {
				t.Errorf("Frame mixes two plans: width %v with %d steps", frame.Scene.Width, frame.State.TotalSteps)
				return
			}
		}
	}()
	wg.Wait()
}

func TestManager_Observers(t *testing.T) {
	var events []playback.Event
	m, _ := newTestManager(t, Options{Observers: []playback.Observer{
		func(e playback.Event) { events = append(events, e) },
	}})
	p := m.Create("", "observed", testPlan())

	p.Control(ControlNext, 0)
	if len(events) != 1 || events[0].Next.CurrentStep != 0 {
		t.Fatalf("Expected one observed transition, got %+v", events)
	}

	m.Close(p.ID)
	p.Control(ControlNext, 0)
	if len(events) != 1 {
		t.Errorf("Expected no events after close, got %d", len(events))
	}
}

func TestManager_Close(t *testing.T) {
	var closed []string
	m, clock := newTestManager(t, Options{OnClose: func(p *Player) { closed = append(closed, p.ID) }})
	p := m.Create("", "closing", testPlan())
	p.Control(ControlPlay, 0)
	if clock.Pending() != 1 {
		t.Fatalf("Expected a pending advance")
	}

	if !m.Close(p.ID) {
		t.Fatal("Expected Close to report the player")
	}
	if clock.Pending() != 0 {
		t.Errorf("Expected the pending advance to be cancelled")
	}
	if m.Close(p.ID) {
		t.Error("Expected second Close to report false")
	}
	if len(closed) != 1 || closed[0] != p.ID {
		t.Errorf("Expected OnClose once, got %v", closed)
	}
	select {
	case <-p.Done():
	default:
		t.Error("Expected Done to be closed")
	}
	if m.Count() != 0 {
		t.Errorf("Expected no players, got %d", m.Count())
	}
}

func TestManager_EvictsLeastRecentlyUsed(t *testing.T) {
	m, _ := newTestManager(t, Options{MaxPlayers: 2})

	first := m.Create("", "first", testPlan())
	second := m.Create("", "second", testPlan())
	first.lastAccessed = time.Now().Add(-time.Minute)
	second.lastAccessed = time.Now()

	third := m.Create("", "third", testPlan())

	if m.Count() != 2 {
		t.Fatalf("Expected 2 players, got %d", m.Count())
	}
	if _, ok := m.Get(first.ID); ok {
		t.Error("Expected the least recently used player to be evicted")
	}
	if _, ok := m.Get(second.ID); !ok {
		t.Error("Expected second player to survive")
	}
	if _, ok := m.Get(third.ID); !ok {
		t.Error("Expected new player to exist")
	}
}

func TestManager_CleanupOldSessions(t *testing.T) {
	m, _ := newTestManager(t, Options{})

	idle := m.Create("", "idle", testPlan())
	recent := m.Create("", "recent", testPlan())
	active := m.Create("", "active", testPlan())

	idle.lastAccessed = time.Now().Add(-2 * time.Hour)
	recent.lastAccessed = time.Now().Add(-10 * time.Minute)
	active.lastAccessed = time.Now().Add(-2 * time.Hour)
	if !m.Touch(active.ID) {
		t.Fatal("Expected Touch to find the player")
	}

	removed := m.CleanupOldSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed player, got %d", removed)
	}
	if _, ok := m.Get(idle.ID); ok {
		t.Error("Expected idle player to be removed")
	}
	if _, ok := m.Get(recent.ID); !ok {
		t.Error("Expected recent player to be kept")
	}
	if _, ok := m.Get(active.ID); !ok {
		t.Error("Expected touched player to be kept")
	}
	if m.Touch("missing") {
		t.Error("Expected Touch to fail for unknown id")
	}
}

func TestManager_List(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	a := m.Create("", "a", testPlan())
	time.Sleep(time.Millisecond)
	b := m.Create("", "b", testPlan())

	list := m.List()
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("Expected players oldest first, got %+v", list)
	}
	if list[0].LastAccessed.IsZero() {
		t.Error("Expected LastAccessed to be reported")
	}
}
