package narration

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// Speaker is the host speech facility. Implementations must tolerate Cancel
// when nothing is being spoken.
type Speaker interface {
	Speak(text string, voice Voice) error
	Cancel()
}

// NoopSpeaker discards all speech. It stands in when no speech engine is available.
type NoopSpeaker struct{}

func (NoopSpeaker) Speak(string, Voice) error { return nil }
func (NoopSpeaker) Cancel() {}

// CommandSpeaker speaks by running a text-to-speech program such as espeak or say.
// A new utterance kills the previous process.
type CommandSpeaker struct {
	path      string
	voiceFlag string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommandSpeaker resolves command on PATH. When the program cannot be found
// the returned speaker stays silent.
func NewCommandSpeaker(command, voiceFlag string) *CommandSpeaker {
	path, err := exec.LookPath(command)
	if err != nil {
		fmt.Printf("[Narration] TTS command %q not available, narration will be silent: %v\n", command, err)
		path = ""
	}
	return &CommandSpeaker{path: path, voiceFlag: voiceFlag}
}

// Available reports whether the TTS program was found.
func (s *CommandSpeaker) Available() bool {
	return s.path != ""
}

// Speak starts the TTS program and returns without waiting for it to finish.
func (s *CommandSpeaker) Speak(text string, voice Voice) error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.path, s.args(text, voice)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("tts start error: %w", err)
	}
	s.cancel = cancel

	go func() {
		_ = cmd.Wait()
		cancel()
	}()
	return nil
}

func (s *CommandSpeaker) args(text string, voice Voice) []string {
	var args []string
	if s.voiceFlag != "" && voice.Name != "" {
		args = append(args, s.voiceFlag, voice.Name)
	}
	return append(args, text)
}

// Cancel kills the utterance in progress, if any.
func (s *CommandSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SpeechCommandType distinguishes relayed speech commands.
type SpeechCommandType string

const (
	SpeechSpeak  SpeechCommandType = "speak"
	SpeechCancel SpeechCommandType = "cancel"
)

// SpeechCommand is what RelaySpeaker forwards to its listeners.
type SpeechCommand struct {
	Type  SpeechCommandType `json:"type"`
	Text  string            `json:"text,omitempty"`
	Voice string            `json:"voice,omitempty"`
}

// RelaySpeaker forwards speech to remote clients (typically a browser using its
// own speech synthesis over the player websocket).
type RelaySpeaker struct {
	mu        sync.RWMutex
	listeners map[int]func(SpeechCommand)
	nextID    int
}

// NewRelaySpeaker creates a relay with no listeners.
func NewRelaySpeaker() *RelaySpeaker {
	return &RelaySpeaker{listeners: make(map[int]func(SpeechCommand))}
}

// Listen registers fn and returns a function that removes it.
func (r *RelaySpeaker) Listen(fn func(SpeechCommand)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *RelaySpeaker) Speak(text string, voice Voice) error {
	r.broadcast(SpeechCommand{Type: SpeechSpeak, Text: text, Voice: voice.Name})
	return nil
}

func (r *RelaySpeaker) Cancel() {
	r.broadcast(SpeechCommand{Type: SpeechCancel})
}

func (r *RelaySpeaker) broadcast(cmd SpeechCommand) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.listeners[id]; ok {
			fn(cmd)
		}
	}
}
