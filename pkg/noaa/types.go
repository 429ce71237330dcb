package noaa

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spencer-p/surfdash/pkg/ocean"
)

const predTimeFormat = "2006-01-02 15:04"

// Prediction holds a single tide event prediction as NOAA encodes it.
type Prediction struct {
	// UTC time of tide prediction
	Time Time `json:"t"`
	// Height in feet
	Height Height `json:"v"`
	// High or Low tide, "H" or "L" when encoded
	Type ocean.Tide `json:"type"`
}

// Verify the custom types can be unmarshaled
var _ json.Unmarshaler = &Time{}
var _ json.Unmarshaler = new(Height)

// Predictions is a time series of Prediction.
type Predictions []Prediction

// NOAAResult is the data type returned by the NOAA API. A failed query fills
// Error instead of Predictions.
type NOAAResult struct {
	Predictions Predictions `json:"predictions"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// PredictionQuery is used to query tide data at a station in a given time
// window; see Client.FetchTides.
type PredictionQuery struct {
	Start, End time.Time
	Station    string
}

type Time time.Time

func (t *Time) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return fmt.Errorf("prediction time %q not string: %w", buf, err)
	}
	parsed, err := time.ParseInLocation(predTimeFormat, s, time.UTC)
	if err != nil {
		return fmt.Errorf("prediction time %q not in fmt %q: %w", s, predTimeFormat, err)
	}
	*t = Time(parsed)
	return nil
}

type Height float64

func (h *Height) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return fmt.Errorf("water height %q not string: %w", buf, err)
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("water height %q not a float: %w", s, err)
	}
	*h = Height(parsed)
	return nil
}

func (p Prediction) T() time.Time {
	return time.Time(p.Time)
}

// Event converts the prediction to the shared tide representation.
func (p Prediction) Event() ocean.TideEvent {
	return ocean.TideEvent{
		Time:   p.T(),
		Height: float64(p.Height),
		Kind:   p.Type,
	}
}

func (p Prediction) String() string {
	return fmt.Sprintf("{t: %s, v: %f, type: %s}",
		p.T().Format(time.RFC822),
		p.Height,
		p.Type.String())
}
