// Package spots is the registry of surf spots a forecast can be made for. The
// registry is read from CSV and passed explicitly to whatever needs it.
package spots

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spencer-p/surfdash/pkg/ocean"
)

//go:embed spots.csv
var defaultCSV string

var ErrUnknownSpot = errors.New("unknown surf spot")

var validate = validator.New()

// Spot is a surf spot and the stations that observe it.
type Spot struct {
	Name string `json:"name" validate:"required"`
	// BuoyStation is the nearest NDBC buoy.
	BuoyStation string `json:"closest_station" validate:"required,numeric"`
	// TideStation is the nearest NOAA CO-OPS tide station.
	TideStation string  `json:"closest_tide" validate:"required,numeric"`
	Lat         float64 `json:"lat" validate:"latitude"`
	Lon         float64 `json:"lng" validate:"longitude"`
	Altitude    float64 `json:"altitude"`
	Depth       float64 `json:"depth" validate:"gte=0"`
	Angle       float64 `json:"angle" validate:"gte=0,lte=360"`
	Slope       float64 `json:"slope" validate:"gte=0"`
	WaveModel   string  `json:"wave_model"`
	StreamLink  string  `json:"stream_link,omitempty" validate:"omitempty,url"`
	Timezone    string  `json:"timezone" validate:"omitempty,timezone"`

	zone *time.Location
}

// Location returns where forecasts for the spot are fetched and presented.
func (s Spot) Location() ocean.Location {
	return ocean.Location{Name: s.Name, Lat: s.Lat, Lon: s.Lon, Timezone: s.zone}
}

// Zone is the time zone the spot's forecasts are presented in.
func (s Spot) Zone() *time.Location {
	if s.zone == nil {
		return time.UTC
	}
	return s.zone
}

// Slug is a URL and cache friendly form of the name.
func (s Spot) Slug() string {
	return Slug(s.Name)
}

func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Registry is an immutable set of spots.
type Registry struct {
	spots  []Spot
	bySlug map[string]int
}

// Default returns the registry built into the binary.
func Default(defaultZone *time.Location) (*Registry, error) {
	return Load(strings.NewReader(defaultCSV), defaultZone)
}

// LoadFile reads a registry from a CSV file, or the built-in registry when
// path is empty.
func LoadFile(path string, defaultZone *time.Location) (*Registry, error) {
	if path == "" {
		return Default(defaultZone)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spots file: %w", err)
	}
	defer f.Close()
	return Load(f, defaultZone)
}

var requiredColumns = []string{
	"name", "closest_station", "closest_tide", "location_n", "location_w",
}

// Load reads a registry from CSV. Longitudes are given in degrees west. Spots
// without a timezone column use defaultZone.
func Load(r io.Reader, defaultZone *time.Location) (*Registry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading spots header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("spots file missing column %q", c)
		}
	}

	reg := &Registry{bySlug: make(map[string]int)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading spots: %w", err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			v := strings.Trim(strings.TrimSpace(rec[i]), `'"`)
			if strings.EqualFold(v, "null") {
				return ""
			}
			return v
		}

		spot, err := parseSpot(field, defaultZone)
		if err != nil {
			return nil, fmt.Errorf("spots line %d: %w", line, err)
		}
		slug := spot.Slug()
		if _, dup := reg.bySlug[slug]; dup {
			return nil, fmt.Errorf("spots line %d: duplicate spot %q", line, spot.Name)
		}
		reg.bySlug[slug] = len(reg.spots)
		reg.spots = append(reg.spots, spot)
	}
	if len(reg.spots) == 0 {
		return nil, errors.New("spots file has no spots")
	}
	return reg, nil
}

func parseSpot(field func(string) string, defaultZone *time.Location) (Spot, error) {
	var errs []error
	num := func(name string) float64 {
		s := field(name)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return f
	}

	s := Spot{
		Name:        field("name"),
		BuoyStation: field("closest_station"),
		TideStation: field("closest_tide"),
		Lat:         num("location_n"),
		Lon:         -num("location_w"),
		Altitude:    num("altitude"),
		Depth:       num("depth"),
		Angle:       num("angle"),
		Slope:       num("slope"),
		WaveModel:   field("wave_model"),
		StreamLink:  field("stream_link"),
		Timezone:    field("timezone"),
	}
	if len(errs) > 0 {
		return Spot{}, errors.Join(errs...)
	}
	if err := validate.Struct(s); err != nil {
		return Spot{}, err
	}

	s.zone = defaultZone
	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return Spot{}, err
		}
		s.zone = loc
	}
	return s, nil
}

// Lookup finds a spot by name or slug, ignoring case.
func (r *Registry) Lookup(name string) (Spot, error) {
	i, ok := r.bySlug[Slug(name)]
	if !ok {
		return Spot{}, fmt.Errorf("%w: %q", ErrUnknownSpot, name)
	}
	return r.spots[i], nil
}

// All returns every spot sorted by name.
func (r *Registry) All() []Spot {
	out := make([]Spot, len(r.spots))
	copy(out, r.spots)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
