// Package ndbc reads the latest observations of NOAA National Data Buoy Center
// stations from their realtime2 standard meteorological text files.
package ndbc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spencer-p/surfdash/pkg/fetch"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/ocean"
)

const DefaultBaseURL = "https://www.ndbc.noaa.gov/data/realtime2"

// StationNames names the buoys near the default spots.
var StationNames = map[string]string{
	"46225": "Torrey Pines Outer",
	"46232": "Point Loma",
	"46086": "San Clemente Basin",
	"46069": "South Santa Rosa Island",
	"46042": "Monterey",
	"46224": "Oceanside Offshore",
}

// Observation is one row of a station's standard meteorological data. Values
// the buoy did not report are nil. Units are those NDBC publishes.
type Observation struct {
	Station string
	Time    time.Time
	// Degrees true the wind blows from
	WindDir *float64
	// Meters per second
	WindSpeed *float64
	// Celsius
	AirTemp   *float64
	WaterTemp *float64
}

// Placeholders NDBC writes in place of a reading, per column.
const (
	missingDir   = 999
	missingSpeed = 99
	missingTemp  = 999
)

const mphPerMeterSecond = 2.23694

// Client is safe for concurrent use.
type Client struct {
	BaseURL string
	fetch   *fetch.Client
}

func NewClient(f *fetch.Client) *Client {
	return &Client{BaseURL: DefaultBaseURL, fetch: f}
}

// Observations returns the station's recent observations, newest first.
func (c *Client) Observations(ctx context.Context, station string) ([]Observation, error) {
	station = strings.ToUpper(strings.TrimSpace(station))
	body, err := c.fetch.Get(ctx, fmt.Sprintf("%s/%s.txt", c.BaseURL, station), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buoy %s: %w", station, err)
	}
	return Parse(station, body)
}

// FetchWaterTemp returns the newest water temperature from the first station
// in order that reports one. It returns nil without error when the stations
// answered but none had a reading, and an error only when every station
// failed.
func (c *Client) FetchWaterTemp(ctx context.Context, stations []string) (*ocean.WaterTemp, error) {
	return firstReading(ctx, c, stations, "water temperature", latestWaterTemp)
}

// FetchObservedWind returns the newest wind observation from the first station
// in order that reports one, converted to miles per hour. Like FetchWaterTemp
// it is nil without error when no station had a reading.
func (c *Client) FetchObservedWind(ctx context.Context, stations []string) (*ocean.WindSample, error) {
	return firstReading(ctx, c, stations, "wind", latestWind)
}

func firstReading[T any](ctx context.Context, c *Client, stations []string, what string, pick func([]Observation) *T) (*T, error) {
	var errs []error
	for _, station := range stations {
		obs, err := c.Observations(ctx, station)
		if err != nil {
			logger.Warnf("Buoy %s %s unavailable: %v", station, what, err)
			errs = append(errs, err)
			continue
		}
		if v := pick(obs); v != nil {
			return v, nil
		}
		logger.Debugf("Buoy %s reported no %s", station, what)
	}
	if len(errs) > 0 && len(errs) == len(stations) {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func latestWind(obs []Observation) *ocean.WindSample {
	for _, o := range obs {
		if o.WindSpeed == nil {
			continue
		}
		w := &ocean.WindSample{
			Time:         o.Time,
			SpeedMPH:     *o.WindSpeed * mphPerMeterSecond,
			DirectionDeg: o.WindDir,
		}
		if o.AirTemp != nil {
			f := *o.AirTemp*9/5 + 32
			w.AirTempF = &f
		}
		return w
	}
	return nil
}

func latestWaterTemp(obs []Observation) *ocean.WaterTemp {
	for _, o := range obs {
		if o.WaterTemp == nil {
			continue
		}
		name, ok := StationNames[o.Station]
		if !ok {
			name = "Buoy " + o.Station
		}
		return &ocean.WaterTemp{
			TempF:      *o.WaterTemp*9/5 + 32,
			Station:    name,
			StationID:  o.Station,
			ObservedAt: o.Time,
		}
	}
	return nil
}

// Parse reads a realtime2 standard meteorological file. Columns are located
// by the header comment line so files with extra or reordered columns parse.
func Parse(station string, body []byte) ([]Observation, error) {
	var header []string
	var out []Observation

	sc := bufio.NewScanner(bytes.NewReader(body))
	row := 0
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			trim := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			// The first comment names the columns, the second their units.
			if header == nil && strings.HasPrefix(trim, "YY") {
				header = strings.Fields(trim)
			}
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 5 {
			continue
		}
		if header == nil {
			return nil, fmt.Errorf("buoy %s: data before header", station)
		}

		idx := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cols) {
				idx[h] = cols[i]
			}
		}

		t, err := rowTime(idx)
		if err != nil {
			return nil, &ocean.TimestampError{
				Series: ocean.WaterSeries,
				Index:  row,
				Value:  strings.Join(cols[:5], " "),
				Err:    err,
			}
		}
		out = append(out, Observation{
			Station:   station,
			Time:      t,
			WindDir:   value(idx["WDIR"], missingDir),
			WindSpeed: value(idx["WSPD"], missingSpeed),
			AirTemp:   value(idx["ATMP"], missingTemp),
			WaterTemp: value(idx["WTMP"], missingTemp),
		})
		row++
	}
	return out, sc.Err()
}

// rowTime reads the UTC timestamp columns. Month is "MM" and minute is "mm".
func rowTime(idx map[string]string) (time.Time, error) {
	year := idx["YY"]
	if y, ok := idx["YYYY"]; ok {
		year = y
	}
	var nums [5]int
	for i, s := range []string{year, idx["MM"], idx["DD"], idx["hh"], idx["mm"]} {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad date field %q: %w", s, err)
		}
		nums[i] = n
	}
	if nums[0] < 100 {
		nums[0] += 2000
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], nums[3], nums[4], 0, 0, time.UTC), nil
}

// value parses a measurement. NDBC writes "MM" for missing values, and older
// files write the column's missing placeholder instead.
func value(s string, missing float64) *float64 {
	if s == "" || s == "MM" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == missing {
		return nil
	}
	return &v
}
