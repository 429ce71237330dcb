// Package meta derives presentable conditions from raw ocean series: the
// sample nearest to now, the state of the tide, and per-day summaries. Every
// function here is a pure function of its inputs.
package meta

import (
	"math"
	"time"

	"github.com/spencer-p/surfdash/pkg/ocean"
)

// Sample is anything with a timestamp.
type Sample interface {
	T() time.Time
}

// Conditions is the set of data we can perform meta analysis on.
type Conditions struct {
	Waves     []ocean.WavePoint
	Tides     []ocean.TideEvent
	Wind      []ocean.WindSample
	WaterTemp *ocean.WaterTemp
}

// Current is a snapshot of conditions at a single instant. Any piece may be
// nil when its series had nothing to offer.
type Current struct {
	Wave      *ocean.WavePoint
	Tide      *TideState
	Wind      *ocean.WindSample
	WaterTemp *ocean.WaterTemp
}

// Nearest returns the sample closest in time to now. Ties go to the earlier
// element of series. ok is false only when series is empty.
func Nearest[S Sample](series []S, now time.Time) (nearest S, ok bool) {
	var best time.Duration
	for i, s := range series {
		d := absDuration(s.T().Sub(now))
		if i == 0 || d < best {
			nearest, best = s, d
		}
	}
	return nearest, len(series) > 0
}

// CurrentConditions picks out what is happening at now.
func CurrentConditions(c Conditions, now time.Time) Current {
	var cur Current
	if w, ok := Nearest(c.Waves, now); ok {
		cur.Wave = &w
	}
	if ts, ok := TideAt(c.Tides, now); ok {
		cur.Tide = &ts
	}
	if w, ok := Nearest(c.Wind, now); ok {
		cur.Wind = &w
	}
	cur.WaterTemp = c.WaterTemp
	return cur
}

func absDuration(d time.Duration) time.Duration {
	switch {
	case d == math.MinInt64:
		return math.MaxInt64
	case d < 0:
		return -d
	default:
		return d
	}
}
