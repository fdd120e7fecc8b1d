// Package narration speaks step descriptions as the playback step changes.
package narration

import (
	"fmt"
	"sync"

	"github.com/code-animator/backend/internal/playback"
)

// Coordinator turns controller transitions into speech. Any manual control and
// any change of step, narration flag or plan cancels the current utterance
// first. Only the changes start a new one. The voice is
// chosen once, the first time a non-empty voice list is offered.
type Coordinator struct {
	speaker Speaker

	mu          sync.Mutex
	voice       Voice
	voiceChosen bool
}

// NewCoordinator creates a coordinator speaking through speaker. A nil speaker is silent.
func NewCoordinator(speaker Speaker) *Coordinator {
	if speaker == nil {
		speaker = NoopSpeaker{}
	}
	return &Coordinator{speaker: speaker}
}

// Attach subscribes the coordinator to c and returns the unsubscribe function.
func (n *Coordinator) Attach(c *playback.Controller) func() {
	return c.Subscribe(n.Observe)
}

// SetVoices offers the host's voice list. Only the first non-empty list is used.
func (n *Coordinator) SetVoices(voices []Voice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.voiceChosen {
		return
	}
	if v, ok := PickVoice(voices); ok {
		n.voice = v
		n.voiceChosen = true
	}
}

// Voice returns the selected voice, if one has been chosen.
func (n *Coordinator) Voice() (Voice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.voice, n.voiceChosen
}

// Observe reacts to one controller event.
func (n *Coordinator) Observe(e playback.Event) {
	toggled := e.Prev.NarrationEnabled != e.Next.NarrationEnabled
	changed := e.PlanChanged || e.StepChanged() || toggled
	if !changed && !e.Manual {
		return
	}

	n.speaker.Cancel()

	s := e.Next
	if !changed || !s.NarrationEnabled || s.CurrentStep < 0 || s.CurrentStep >= s.TotalSteps {
		return
	}

	voice, _ := n.Voice()
	if err := n.speaker.Speak(s.Description, voice); err != nil {
		fmt.Printf("[Narration] speak step %d failed: %v\n", s.CurrentStep, err)
	}
}

// Stop cancels any utterance in progress.
func (n *Coordinator) Stop() {
	n.speaker.Cancel()
}
