// Package metrics records playback and generation activity through OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/code-animator/backend/internal/playback"
)

var meter = otel.Meter("code-animator")

// PlayerMetrics provides metrics collection for players, frames and generation requests
type PlayerMetrics struct {
	playersCreatedCounter       metric.Int64Counter
	playersActiveGauge          metric.Int64UpDownCounter
	transitionsCounter          metric.Int64Counter
	framesRenderedCounter       metric.Int64Counter
	generationsCounter          metric.Int64Counter
	generationDurationHistogram metric.Float64Histogram
}

// NewPlayerMetrics creates a new metrics collector
func NewPlayerMetrics() (*PlayerMetrics, error) {
	playersCreatedCounter, err := meter.Int64Counter(
		"animator.players.created",
		metric.WithDescription("Total number of players created"),
		metric.WithUnit("{player}"),
	)
	if err != nil {
		return nil, err
	}

	playersActiveGauge, err := meter.Int64UpDownCounter(
		"animator.players.active",
		metric.WithDescription("Number of currently open players"),
		metric.WithUnit("{player}"),
	)
	if err != nil {
		return nil, err
	}

	transitionsCounter, err := meter.Int64Counter(
		"animator.playback.transitions",
		metric.WithDescription("Observed playback state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	framesRenderedCounter, err := meter.Int64Counter(
		"animator.frames.rendered",
		metric.WithDescription("Frames rendered per output format"),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return nil, err
	}

	generationsCounter, err := meter.Int64Counter(
		"animator.generations",
		metric.WithDescription("Plan generation requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	generationDurationHistogram, err := meter.Float64Histogram(
		"animator.generation.duration",
		metric.WithDescription("Duration of plan generation requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PlayerMetrics{
		playersCreatedCounter:       playersCreatedCounter,
		playersActiveGauge:          playersActiveGauge,
		transitionsCounter:          transitionsCounter,
		framesRenderedCounter:       framesRenderedCounter,
		generationsCounter:          generationsCounter,
		generationDurationHistogram: generationDurationHistogram,
	}, nil
}

// RecordPlayerCreated records a new player
func (pm *PlayerMetrics) RecordPlayerCreated(ctx context.Context, source string) {
	pm.playersCreatedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("plan.source", source)),
	)
	pm.playersActiveGauge.Add(ctx, 1)
}

// RecordPlayerClosed records a player being torn down
func (pm *PlayerMetrics) RecordPlayerClosed(ctx context.Context) {
	pm.playersActiveGauge.Add(ctx, -1)
}

// RecordFrame records one rendered frame
func (pm *PlayerMetrics) RecordFrame(ctx context.Context, format string) {
	pm.framesRenderedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("format", format)),
	)
}

// RecordGeneration records one generation request and its outcome
func (pm *PlayerMetrics) RecordGeneration(ctx context.Context, numSteps int, errorType string, duration time.Duration) {
	status := "completed"
	if errorType != "" {
		status = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("error.type", errorType),
		attribute.Int("steps.requested", numSteps),
	)
	pm.generationsCounter.Add(ctx, 1, attrs)
	pm.generationDurationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// TransitionKind classifies a controller event.
func TransitionKind(e playback.Event) string {
	switch {
	case e.PlanChanged:
		return "load"
	case e.Manual && e.Prev == e.Next:
		return "noop"
	case e.Prev.IsPlaying && !e.Next.IsPlaying && e.Next.CurrentStep == e.Next.TotalSteps-1 && e.StepChanged():
		return "finish"
	case e.StepChanged() && e.Next.IsPlaying:
		return "advance"
	case e.StepChanged():
		return "seek"
	case e.Prev.IsPlaying != e.Next.IsPlaying:
		if e.Next.IsPlaying {
			return "play"
		}
		return "pause"
	case e.Prev.NarrationEnabled != e.Next.NarrationEnabled:
		return "narration"
	}
	return "other"
}

// Observe counts one controller event. It is a playback.Observer.
func (pm *PlayerMetrics) Observe(e playback.Event) {
	pm.transitionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("transition", TransitionKind(e))),
	)
}
