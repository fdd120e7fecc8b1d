package playback

import "time"

// Timer is a pending single-shot callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall-clock implementation backed by time.AfterFunc.
var SystemClock Clock = systemClock{}
