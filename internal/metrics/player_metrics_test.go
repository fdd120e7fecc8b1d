package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/playback"
)

func TestPlayerMetrics_Creation(t *testing.T) {
	metrics, err := NewPlayerMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics.playersCreatedCounter)
	assert.NotNil(t, metrics.playersActiveGauge)
	assert.NotNil(t, metrics.transitionsCounter)
	assert.NotNil(t, metrics.framesRenderedCounter)
	assert.NotNil(t, metrics.generationsCounter)
	assert.NotNil(t, metrics.generationDurationHistogram)
}

func TestPlayerMetrics_Record(t *testing.T) {
	metrics, err := NewPlayerMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		metrics.RecordPlayerCreated(ctx, "example")
		metrics.RecordFrame(ctx, "png")
		metrics.RecordGeneration(ctx, 10, "", 2*time.Second)
		metrics.RecordGeneration(ctx, 10, "api", 300*time.Millisecond)
		metrics.RecordPlayerClosed(ctx)
	})
}

func TestPlayerMetrics_ObserveController(t *testing.T) {
	metrics, err := NewPlayerMetrics()
	require.NoError(t, err)

	plan := &models.AnimationPlan{Steps: make([]models.Step, 3)}
	c := playback.NewController(plan, nil)
	defer c.Close()
	c.Subscribe(metrics.Observe)

	assert.NotPanics(t, func() {
		c.Next()
		c.ToggleNarration()
		c.Reset()
	})
}

func TestTransitionKind(t *testing.T) {
	state := func(step int, playing, narration bool) models.PlayerState {
		return models.PlayerState{CurrentStep: step, TotalSteps: 3, IsPlaying: playing, NarrationEnabled: narration}
	}

	tests := []struct {
		name string
		evt  playback.Event
		want string
	}{
		{"load", playback.Event{Prev: state(1, false, false), Next: state(-1, false, false), PlanChanged: true}, "load"},
		{"advance", playback.Event{Prev: state(0, true, false), Next: state(1, true, false)}, "advance"},
		{"finish", playback.Event{Prev: state(1, true, false), Next: state(2, false, false)}, "finish"},
		{"seek", playback.Event{Prev: state(0, false, false), Next: state(2, false, false)}, "seek"},
		{"play", playback.Event{Prev: state(0, false, false), Next: state(0, true, false)}, "play"},
		{"pause", playback.Event{Prev: state(0, true, false), Next: state(0, false, false)}, "pause"},
		{"narration", playback.Event{Prev: state(0, false, false), Next: state(0, false, true)}, "narration"},
		{"noop", playback.Event{Prev: state(2, false, false), Next: state(2, false, false), Manual: true}, "noop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TransitionKind(tt.evt))
		})
	}
}
