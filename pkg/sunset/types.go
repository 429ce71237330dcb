package sunset

import (
	"fmt"
	"time"

	"github.com/spencer-p/surfdash/pkg/ocean"
	"github.com/spencer-p/surfdash/pkg/timetricks"
)

// Place is a lat/long coordinate on the Earth matched with its time zone.
type Place struct {
	Lat, Long float64
	Location  *time.Location
}

// PlaceOf returns the Place of a forecast location.
func PlaceOf(l ocean.Location) Place {
	return Place{Lat: l.Lat, Long: l.Lon, Location: l.Zone()}
}

// SunEvents is a time series of SunEvent.
type SunEvents []SunEvent

// SunEvent is a sunrise or sunset event.
type SunEvent struct {
	Time  time.Time
	Event Event
}

func (s *SunEvent) String() string {
	return fmt.Sprintf("%s %s", s.Time.Format(time.RFC822), s.Event)
}

// Event encodes a sunrise or sunset event.
type Event bool

const (
	Sunrise Event = true
	Sunset  Event = false
)

func (e Event) String() string {
	if e == Sunrise {
		return "Sunrise"
	}
	return "Sunset"
}

// On returns the sunrise and sunset that fall on the given local day.
func (events SunEvents) On(day time.Time, loc *time.Location) (rise, set time.Time, ok bool) {
	key := timetricks.DayKey(day, loc)
	var haveRise, haveSet bool
	for _, e := range events {
		if timetricks.DayKey(e.Time, loc) != key {
			continue
		}
		if e.Event == Sunrise && !haveRise {
			rise, haveRise = e.Time, true
		} else if e.Event == Sunset && !haveSet {
			set, haveSet = e.Time, true
		}
	}
	return rise, set, haveRise && haveSet
}
