package meta

import (
	"time"

	"github.com/spencer-p/surfdash/pkg/ocean"
)

// Direction is which way the tide is moving.
type Direction string

const (
	Rising  Direction = "Rising"
	Falling Direction = "Falling"
)

// TideState is the interpolated tide between two predicted extremes.
type TideState struct {
	Height    float64
	Direction Direction
	Previous  ocean.TideEvent
	Next      ocean.TideEvent
	// Progress is how far now sits between Previous and Next, in [0, 1].
	Progress float64
}

// TideAt interpolates the tide at now from an ascending series of extremes.
// ok is false when now is not bracketed by an event at or before it and an
// event after it.
//
// The tide is Rising only when moving from a low to a high; any other pair,
// including two extremes of the same kind, counts as Falling.
func TideAt(events []ocean.TideEvent, now time.Time) (state TideState, ok bool) {
	var prev, next *ocean.TideEvent
	for i := range events {
		if !events[i].Time.After(now) {
			prev = &events[i]
			continue
		}
		next = &events[i]
		break
	}
	if prev == nil || next == nil {
		return TideState{}, false
	}

	progress := 0.0
	if total := next.Time.Sub(prev.Time); total > 0 {
		progress = clamp(float64(now.Sub(prev.Time))/float64(total), 0, 1)
	}

	dir := Falling
	if prev.Kind == ocean.LowTide && next.Kind == ocean.HighTide {
		dir = Rising
	}

	return TideState{
		Height:    prev.Height + (next.Height-prev.Height)*progress,
		Direction: dir,
		Previous:  *prev,
		Next:      *next,
		Progress:  progress,
	}, true
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
