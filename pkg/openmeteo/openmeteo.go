// Package openmeteo fetches NOAA GFS wave and wind forecasts through the
// Open-Meteo JSON APIs.
package openmeteo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/spencer-p/surfdash/pkg/fetch"
	"github.com/spencer-p/surfdash/pkg/ocean"
)

const (
	DefaultMarineURL = "https://marine-api.open-meteo.com/v1/marine"
	DefaultGFSURL    = "https://api.open-meteo.com/v1/gfs"

	// WaveModel is NOAA's global GFS wave model at 0.25 degrees.
	WaveModel = "ncep_gfswave025"
	// WaveCadence matches the native output interval of the wave model.
	WaveCadence = 3 * time.Hour

	hourFormat = "2006-01-02T15:04"
)

// Client is safe for concurrent use.
type Client struct {
	MarineURL string
	GFSURL    string
	fetch     *fetch.Client
}

func NewClient(f *fetch.Client) *Client {
	return &Client{
		MarineURL: DefaultMarineURL,
		GFSURL:    DefaultGFSURL,
		fetch:     f,
	}
}

type hourly struct {
	Time []string `json:"time"`
	// Marine variables.
	WaveHeight    []*float64 `json:"wave_height"`
	WavePeriod    []*float64 `json:"wave_period"`
	WaveDirection []*float64 `json:"wave_direction"`
	// Weather variables.
	WindSpeed     []*float64 `json:"wind_speed_10m"`
	WindDirection []*float64 `json:"wind_direction_10m"`
	Temperature   []*float64 `json:"temperature_2m"`
}

type response struct {
	Hourly hourly `json:"hourly"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func coords(loc ocean.Location, horizon time.Duration) url.Values {
	vals := make(url.Values)
	vals.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	vals.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	vals.Set("timezone", "GMT")
	vals.Set("forecast_hours", strconv.Itoa(int(math.Ceil(horizon.Hours()))))
	return vals
}

func (c *Client) get(ctx context.Context, base string, vals url.Values) (*hourly, error) {
	addr, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	addr.RawQuery = vals.Encode()

	var resp response
	if err := c.fetch.GetJSON(ctx, addr.String(), &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("open-meteo: %s", resp.Reason)
	}
	return &resp.Hourly, nil
}

// FetchWaves returns the wave forecast at loc for the next horizon, one point
// every WaveCadence. Hours the model has no value for are skipped.
func (c *Client) FetchWaves(ctx context.Context, loc ocean.Location, horizon time.Duration) ([]ocean.WavePoint, error) {
	vals := coords(loc, horizon)
	vals.Set("hourly", "wave_height,wave_period,wave_direction")
	vals.Set("length_unit", "imperial")
	vals.Set("models", WaveModel)

	h, err := c.get(ctx, c.MarineURL, vals)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch waves for %s: %w", loc.Name, err)
	}

	var points []ocean.WavePoint
	for i, raw := range h.Time {
		t, err := parseHour(ocean.WaveSeries, i, raw)
		if err != nil {
			return nil, err
		}
		if t.Hour()%int(WaveCadence.Hours()) != 0 {
			continue
		}
		height, period := at(h.WaveHeight, i), at(h.WavePeriod, i)
		if height == nil || period == nil {
			continue
		}
		p := ocean.WavePoint{
			Time:   t,
			Height: *height,
			Period: *period,
		}
		if deg := at(h.WaveDirection, i); deg != nil {
			p.Direction = ocean.Compass(*deg)
			p.DirectionDeg = deg
		}
		points = append(points, p)
	}
	return points, nil
}

// FetchWind returns the hourly GFS wind forecast at loc for the next horizon.
func (c *Client) FetchWind(ctx context.Context, loc ocean.Location, horizon time.Duration) ([]ocean.WindSample, error) {
	vals := coords(loc, horizon)
	vals.Set("hourly", "wind_speed_10m,wind_direction_10m,temperature_2m")
	vals.Set("wind_speed_unit", "mph")
	vals.Set("temperature_unit", "fahrenheit")

	h, err := c.get(ctx, c.GFSURL, vals)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wind for %s: %w", loc.Name, err)
	}

	var samples []ocean.WindSample
	for i, raw := range h.Time {
		t, err := parseHour(ocean.WindSeries, i, raw)
		if err != nil {
			return nil, err
		}
		speed := at(h.WindSpeed, i)
		if speed == nil {
			continue
		}
		samples = append(samples, ocean.WindSample{
			Time:         t,
			SpeedMPH:     *speed,
			DirectionDeg: at(h.WindDirection, i),
			AirTempF:     at(h.Temperature, i),
		})
	}
	return samples, nil
}

// parseHour reads Open-Meteo's offsetless hourly timestamps, which are UTC
// when the query asks for GMT.
func parseHour(series string, i int, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &ocean.TimestampError{Series: series, Index: i, Err: ocean.ErrMissingTimestamp}
	}
	t, err := time.ParseInLocation(hourFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, &ocean.TimestampError{Series: series, Index: i, Value: s, Err: err}
	}
	return t, nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}
