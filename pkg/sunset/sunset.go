package sunset

import (
	"math"
	"time"

	"github.com/spencer-p/surfdash/pkg/timetricks"

	"github.com/keep94/sunrise"
)

// GetSunEvents returns a list of ordered sun events from the starting time to
// the end time in the given place. The first result will always be a sunrise
// on the local day of start.
func GetSunEvents(start time.Time, duration time.Duration, place Place) SunEvents {
	loc := place.Location
	if loc == nil {
		loc = time.UTC
	}
	start = start.In(loc)

	var s sunrise.Sunrise
	s.Around(place.Lat, place.Long, start)

	// The sunrise package is loose with its dates; walk to the day of start,
	// giving up after a few steps either way.
	day := timetricks.DayKey(start, loc)
	for i := 0; i < 3 && timetricks.DayKey(s.Sunrise(), loc) < day; i++ {
		s.AddDays(1)
	}
	for i := 0; i < 3 && timetricks.DayKey(s.Sunrise(), loc) > day; i++ {
		s.AddDays(-1)
	}

	// Get sunrises and sunsets for the given number of days.
	numDays := int(math.Ceil(duration.Hours() / 24))
	ret := make(SunEvents, numDays*2)
	for i := 0; i < numDays*2; i += 2 {
		ret[i] = SunEvent{s.Sunrise().In(loc), Sunrise}
		ret[i+1] = SunEvent{s.Sunset().In(loc), Sunset}
		s.AddDays(1)
	}
	return ret
}
