package ocean

import (
	"encoding/json"
	"fmt"
)

// Tide is the kind of a tide event.
type Tide uint

const (
	HighTide Tide = iota
	LowTide
)

var _ json.Unmarshaler = new(Tide)
var _ json.Marshaler = HighTide

func (t Tide) Valid() bool {
	return t == HighTide || t == LowTide
}

func (t Tide) String() string {
	switch t {
	case HighTide:
		return "High"
	case LowTide:
		return "Low"
	default:
		return "invalid"
	}
}

func (t Tide) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tide type %d", uint(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts both the long form ("High") and NOAA's short form
// ("H").
func (t *Tide) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return fmt.Errorf("tide %q not a string: %w", buf, err)
	}
	switch s {
	case "High", "H":
		*t = HighTide
	case "Low", "L":
		*t = LowTide
	default:
		return fmt.Errorf("invalid tide type %q", s)
	}
	return nil
}
