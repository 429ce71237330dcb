package ocean

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Series names used in errors.
const (
	WaveSeries  = "waves"
	TideSeries  = "tides"
	WindSeries  = "wind"
	WaterSeries = "water_temp"
	// ObservedWindSeries is a single buoy wind reading.
	ObservedWindSeries = "observed_wind"
)

// ErrMissingTimestamp is wrapped by a TimestampError whose entry has no
// timestamp at all.
var ErrMissingTimestamp = errors.New("missing timestamp")

// TimestampError reports an entry of a series whose timestamp could not be
// used.
type TimestampError struct {
	Series string
	Index  int
	Value  string
	Err    error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("%s entry %d: bad timestamp %q: %v", e.Series, e.Index, e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error {
	return e.Err
}

// ParseTimestamp parses an RFC 3339 timestamp belonging to entry i of a series.
func ParseTimestamp(series string, i int, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &TimestampError{series, i, s, ErrMissingTimestamp}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &TimestampError{series, i, s, err}
	}
	return t, nil
}

type wireWave struct {
	Time         string   `json:"time"`
	Height       float64  `json:"height"`
	Period       float64  `json:"period"`
	Direction    string   `json:"direction"`
	DirectionDeg *float64 `json:"direction_deg,omitempty"`
}

type wireTide struct {
	Time   string  `json:"time"`
	Height float64 `json:"height"`
	Kind   Tide    `json:"type"`
}

type wireWind struct {
	Time         string   `json:"time"`
	SpeedMPH     float64  `json:"speed_mph"`
	DirectionDeg *float64 `json:"direction_deg,omitempty"`
	AirTempF     *float64 `json:"air_temp_f,omitempty"`
}

// DecodeWaves parses a JSON wave series. An entry with a missing or malformed
// timestamp fails the whole decode with a *TimestampError.
func DecodeWaves(blob []byte) ([]WavePoint, error) {
	var wire []wireWave
	if err := json.Unmarshal(blob, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", WaveSeries, err)
	}
	result := make([]WavePoint, len(wire))
	for i, w := range wire {
		t, err := ParseTimestamp(WaveSeries, i, w.Time)
		if err != nil {
			return nil, err
		}
		result[i] = WavePoint{
			Time:         t,
			Height:       w.Height,
			Period:       w.Period,
			Direction:    w.Direction,
			DirectionDeg: w.DirectionDeg,
		}
	}
	return result, nil
}

// DecodeTides parses a JSON tide series.
func DecodeTides(blob []byte) ([]TideEvent, error) {
	var wire []wireTide
	if err := json.Unmarshal(blob, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", TideSeries, err)
	}
	result := make([]TideEvent, len(wire))
	for i, w := range wire {
		t, err := ParseTimestamp(TideSeries, i, w.Time)
		if err != nil {
			return nil, err
		}
		result[i] = TideEvent{Time: t, Height: w.Height, Kind: w.Kind}
	}
	return result, nil
}

// DecodeWind parses a JSON wind series.
func DecodeWind(blob []byte) ([]WindSample, error) {
	var wire []wireWind
	if err := json.Unmarshal(blob, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", WindSeries, err)
	}
	result := make([]WindSample, len(wire))
	for i, w := range wire {
		t, err := ParseTimestamp(WindSeries, i, w.Time)
		if err != nil {
			return nil, err
		}
		result[i] = WindSample{
			Time:         t,
			SpeedMPH:     w.SpeedMPH,
			DirectionDeg: w.DirectionDeg,
			AirTempF:     w.AirTempF,
		}
	}
	return result, nil
}

// DecodeWaterTemp parses a single JSON water temperature reading. A JSON null
// decodes to nil.
func DecodeWaterTemp(blob []byte) (*WaterTemp, error) {
	var wt *WaterTemp
	if err := json.Unmarshal(blob, &wt); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", WaterSeries, err)
	}
	return wt, nil
}

// DecodeObservedWind parses a single JSON wind reading. A JSON null decodes to
// nil.
func DecodeObservedWind(blob []byte) (*WindSample, error) {
	var w *wireWind
	if err := json.Unmarshal(blob, &w); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ObservedWindSeries, err)
	}
	if w == nil {
		return nil, nil
	}
	t, err := ParseTimestamp(ObservedWindSeries, 0, w.Time)
	if err != nil {
		return nil, err
	}
	return &WindSample{
		Time:         t,
		SpeedMPH:     w.SpeedMPH,
		DirectionDeg: w.DirectionDeg,
		AirTempF:     w.AirTempF,
	}, nil
}
