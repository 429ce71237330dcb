package meta

import (
	"sort"
	"time"

	"github.com/spencer-p/surfdash/pkg/ocean"
	"github.com/spencer-p/surfdash/pkg/timetricks"
)

// MaxSummaryDays caps the number of days DailySummaries returns.
const MaxSummaryDays = 5

// Quality is a coarse rating of a day of surf with a color to show it in.
type Quality struct {
	Label string `json:"quality"`
	Color string `json:"quality_color"`
}

var (
	Good     = Quality{"Good", "green"}
	Fair     = Quality{"Fair", "yellow"}
	PoorFair = Quality{"Poor-Fair", "orange"}
	Poor     = Quality{"Poor", "red"}
)

// Classify rates surf from its average height in feet and period in seconds.
func Classify(height, period float64) Quality {
	switch {
	case height >= 4.0 && period >= 12:
		return Good
	case height >= 2.5 && period >= 10:
		return Fair
	case height >= 1.5:
		return PoorFair
	default:
		return Poor
	}
}

// DayTide is a tide event as shown on a daily summary.
type DayTide struct {
	// Clock is the local wall clock, e.g. "03:04 PM".
	Clock  string     `json:"time"`
	At     time.Time  `json:"at"`
	Height float64    `json:"height"`
	Kind   ocean.Tide `json:"type"`
}

// DailySummary aggregates one local calendar day of forecast.
type DailySummary struct {
	Date      string    `json:"date"`
	Day       time.Time `json:"-"`
	DayName   string    `json:"day_name"`
	AvgHeight float64   `json:"wave_height_avg"`
	AvgPeriod float64   `json:"wave_period"`
	Direction string    `json:"wave_direction"`
	Quality
	Tides []DayTide `json:"tides"`
}

// DailySummaries groups waves by their calendar date in loc and rates each
// day. The tides falling on a day are attached to it. The result is ordered
// by date and holds at most MaxSummaryDays days.
//
// A wave or tide with a zero timestamp yields an *ocean.TimestampError.
func DailySummaries(waves []ocean.WavePoint, tides []ocean.TideEvent, loc *time.Location) ([]DailySummary, error) {
	if len(waves) == 0 {
		return []DailySummary{}, nil
	}

	dayTides := make(map[string][]DayTide)
	for i, tide := range tides {
		if tide.Time.IsZero() {
			return nil, &ocean.TimestampError{Series: ocean.TideSeries, Index: i, Err: ocean.ErrMissingTimestamp}
		}
		local := tide.Time.In(loc)
		key := timetricks.DayKey(local, loc)
		dayTides[key] = append(dayTides[key], DayTide{
			Clock:  timetricks.Clock(local),
			At:     tide.Time,
			Height: tide.Height,
			Kind:   tide.Kind,
		})
	}

	groups := make(map[string][]ocean.WavePoint)
	var keys []string
	for i, w := range waves {
		if w.Time.IsZero() {
			return nil, &ocean.TimestampError{Series: ocean.WaveSeries, Index: i, Err: ocean.ErrMissingTimestamp}
		}
		key := timetricks.DayKey(w.Time, loc)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], w)
	}
	sort.Strings(keys)
	if len(keys) > MaxSummaryDays {
		keys = keys[:MaxSummaryDays]
	}

	result := make([]DailySummary, 0, len(keys))
	for _, key := range keys {
		points := groups[key]
		var heights, periods float64
		for _, p := range points {
			heights += p.Height
			periods += p.Period
		}
		n := float64(len(points))
		avgHeight, avgPeriod := heights/n, periods/n

		day := timetricks.StartOfDay(points[0].Time, loc)
		tides := dayTides[key]
		if tides == nil {
			tides = []DayTide{}
		}
		result = append(result, DailySummary{
			Date:      key,
			Day:       day,
			DayName:   day.Weekday().String(),
			AvgHeight: avgHeight,
			AvgPeriod: avgPeriod,
			Direction: points[0].Direction,
			Quality:   Classify(avgHeight, avgPeriod),
			Tides:     tides,
		})
	}
	return result, nil
}
