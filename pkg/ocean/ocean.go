// Package ocean holds the time series that forecast sources produce: wave
// points, tide events, wind samples and water temperature readings. Every
// sample type carries an absolute timestamp; conversion to a spot's local time
// happens only where results are presented.
package ocean

import (
	"math"
	"time"
)

const knotsPerMPH = 0.868976

// Location is a named coordinate with the time zone its forecasts are
// presented in.
type Location struct {
	Name     string         `json:"name"`
	Lat      float64        `json:"lat"`
	Lon      float64        `json:"lng"`
	Timezone *time.Location `json:"-"`
}

// Zone returns the location's time zone, or UTC if none is set.
func (l Location) Zone() *time.Location {
	if l.Timezone == nil {
		return time.UTC
	}
	return l.Timezone
}

// WavePoint is a single forecast sample of surf.
type WavePoint struct {
	Time time.Time `json:"time"`
	// Height in feet
	Height float64 `json:"height"`
	// Period in seconds
	Period float64 `json:"period"`
	// Direction the swell comes from as a 16-point compass label
	Direction    string   `json:"direction"`
	DirectionDeg *float64 `json:"direction_deg,omitempty"`
}

func (w WavePoint) T() time.Time { return w.Time }

// TideEvent is a predicted high or low tide.
type TideEvent struct {
	Time time.Time `json:"time"`
	// Height in feet above MLLW
	Height float64 `json:"height"`
	Kind   Tide    `json:"type"`
}

func (e TideEvent) T() time.Time { return e.Time }

// WindSample is an hourly wind forecast.
type WindSample struct {
	Time         time.Time `json:"time"`
	SpeedMPH     float64   `json:"speed_mph"`
	DirectionDeg *float64  `json:"direction_deg,omitempty"`
	AirTempF     *float64  `json:"air_temp_f,omitempty"`
}

func (w WindSample) T() time.Time { return w.Time }

// Knots returns the wind speed in knots.
func (w WindSample) Knots() float64 {
	return w.SpeedMPH * knotsPerMPH
}

// Compass returns the wind direction as a compass label, or "Variable" when
// the direction is unknown.
func (w WindSample) Compass() string {
	if w.DirectionDeg == nil {
		return "Variable"
	}
	return Compass(*w.DirectionDeg)
}

// Strength describes the wind speed in words.
func (w WindSample) Strength() string {
	switch {
	case w.SpeedMPH < 5:
		return "Light"
	case w.SpeedMPH < 15:
		return "Moderate"
	case w.SpeedMPH < 25:
		return "Strong"
	default:
		return "Very Strong"
	}
}

// WaterTemp is the latest water temperature reported by a buoy.
type WaterTemp struct {
	TempF      float64   `json:"temp_f"`
	Station    string    `json:"station"`
	StationID  string    `json:"station_id"`
	ObservedAt time.Time `json:"observed_at"`
}

func (w WaterTemp) T() time.Time { return w.ObservedAt }

// TempC returns the temperature in celsius.
func (w WaterTemp) TempC() float64 {
	return (w.TempF - 32) * 5 / 9
}

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Compass converts a bearing in degrees to a 16-point compass label.
func Compass(deg float64) string {
	i := int(math.Round(deg/22.5)) % 16
	if i < 0 {
		i += 16
	}
	return compassPoints[i]
}
