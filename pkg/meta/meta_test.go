package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/spencer-p/surfdash/pkg/ocean"
)

var la = mustLoad("America/Los_Angeles")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.June, 1, hour, minute, 0, 0, la)
}

func TestNearest(t *testing.T) {
	series := []ocean.WavePoint{
		{Time: at(0, 0), Height: 1},
		{Time: at(3, 0), Height: 2},
		{Time: at(6, 0), Height: 3},
	}
	table := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"before all", at(0, 0).Add(-10 * time.Hour), 1},
		{"exact", at(3, 0), 2},
		{"closer to later", at(4, 31), 3},
		{"tie goes to first", at(4, 30), 2},
		{"after all", at(23, 0), 3},
	}
	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Nearest(series, tc.now)
			if !ok {
				t.Fatalf("expected a sample")
			}
			if got.Height != tc.want {
				t.Errorf("got height %g, want %g", got.Height, tc.want)
			}
		})
	}
}

func TestNearestEmpty(t *testing.T) {
	if _, ok := Nearest([]ocean.WindSample{}, at(0, 0)); ok {
		t.Errorf("expected no data for empty series")
	}
	if _, ok := Nearest[ocean.WavePoint](nil, at(0, 0)); ok {
		t.Errorf("expected no data for nil series")
	}
}

func TestNearestIsMember(t *testing.T) {
	series := []ocean.WindSample{}
	for i := 0; i < 48; i++ {
		series = append(series, ocean.WindSample{Time: at(0, 0).Add(time.Duration(i) * time.Hour), SpeedMPH: float64(i)})
	}
	for m := -120; m < 60*50; m += 17 {
		now := at(0, 0).Add(time.Duration(m) * time.Minute)
		got, _ := Nearest(series, now)
		found := false
		for _, s := range series {
			if s == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("Nearest at %s returned %+v, not in series", now, got)
		}
	}
}

func ExampleTideAt() {
	events := []ocean.TideEvent{
		{Time: at(6, 0), Height: 1, Kind: ocean.LowTide},
		{Time: at(12, 0), Height: 6, Kind: ocean.HighTide},
	}
	state, ok := TideAt(events, at(9, 0))
	fmt.Println(ok, state.Progress, state.Height, state.Direction)
	// Output:
	// true 0.5 3.5 Rising
}

func TestTideAt(t *testing.T) {
	events := []ocean.TideEvent{
		{Time: at(0, 15), Height: 5.5, Kind: ocean.HighTide},
		{Time: at(6, 0), Height: 1, Kind: ocean.LowTide},
		{Time: at(12, 0), Height: 6, Kind: ocean.HighTide},
		{Time: at(18, 30), Height: -0.5, Kind: ocean.LowTide},
	}
	table := []struct {
		name       string
		now        time.Time
		wantOK     bool
		wantHeight float64
		wantDir    Direction
	}{
		{"before first event", at(0, 0), false, 0, ""},
		{"at previous event", at(6, 0), true, 1, Rising},
		{"falling", at(3, 7).Add(30 * time.Second), true, 3.25, Falling},
		{"at last event", at(18, 30), false, 0, ""},
		{"after last event", at(23, 0), false, 0, ""},
	}
	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := TideAt(events, tc.now)
			if ok != tc.wantOK {
				t.Fatalf("got ok=%t, want %t", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if math.Abs(got.Height-tc.wantHeight) > 1e-9 {
				t.Errorf("got height %g, want %g", got.Height, tc.wantHeight)
			}
			if got.Direction != tc.wantDir {
				t.Errorf("got direction %s, want %s", got.Direction, tc.wantDir)
			}
		})
	}
}

func TestTideAtEventHeights(t *testing.T) {
	events := []ocean.TideEvent{
		{Time: at(1, 0), Height: 4, Kind: ocean.HighTide},
		{Time: at(7, 20), Height: 0.2, Kind: ocean.LowTide},
		{Time: at(13, 45), Height: 5.1, Kind: ocean.HighTide},
		{Time: at(20, 5), Height: 1.7, Kind: ocean.LowTide},
	}
	// Every event but the last is the previous event at its own timestamp.
	for _, e := range events[:len(events)-1] {
		got, ok := TideAt(events, e.Time)
		if !ok {
			t.Fatalf("expected tide state at %s", e.Time)
		}
		if got.Height != e.Height {
			t.Errorf("at %s got height %g, want %g", e.Time, got.Height, e.Height)
		}
		if got.Progress != 0 {
			t.Errorf("at %s got progress %g, want 0", e.Time, got.Progress)
		}
	}

	for m := 60; m < 20*60; m += 7 {
		got, ok := TideAt(events, at(0, 0).Add(time.Duration(m)*time.Minute))
		if !ok {
			continue
		}
		if got.Progress < 0 || got.Progress > 1 {
			t.Errorf("progress %g out of range", got.Progress)
		}
	}
}

func TestTideAtSameKindIsFalling(t *testing.T) {
	events := []ocean.TideEvent{
		{Time: at(6, 0), Height: 1, Kind: ocean.LowTide},
		{Time: at(12, 0), Height: 2, Kind: ocean.LowTide},
	}
	got, ok := TideAt(events, at(8, 0))
	if !ok || got.Direction != Falling {
		t.Errorf("got %+v ok=%t, want Falling", got, ok)
	}
}

func TestTideAtZeroDuration(t *testing.T) {
	events := []ocean.TideEvent{
		{Time: at(6, 0), Height: 1, Kind: ocean.LowTide},
		{Time: at(6, 0), Height: 3, Kind: ocean.HighTide},
		{Time: at(12, 0), Height: 6, Kind: ocean.HighTide},
	}
	// Both events at 06:00 are at or before now, so the later one is previous.
	got, ok := TideAt(events, at(6, 0))
	if !ok {
		t.Fatalf("expected tide state")
	}
	if got.Height != 3 || got.Progress != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestClassify(t *testing.T) {
	table := []struct {
		height, period float64
		want           Quality
	}{
		{4.0, 12, Good},
		{3.9, 12, Fair},
		{4.0, 11.9, Fair},
		{2.5, 10, Fair},
		{2.5, 9, PoorFair},
		{1.5, 20, PoorFair},
		{1.0, 20, Poor},
		{1.0, 0, Poor},
	}
	for _, tc := range table {
		t.Run(fmt.Sprintf("%g ft %g s", tc.height, tc.period), func(t *testing.T) {
			if got := Classify(tc.height, tc.period); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDailySummaries(t *testing.T) {
	day1 := time.Date(2024, time.June, 1, 0, 0, 0, 0, la)
	day2 := day1.AddDate(0, 0, 1)
	waves := []ocean.WavePoint{
		{Time: day1.Add(6 * time.Hour), Height: 2, Period: 10, Direction: "SW"},
		{Time: day1.Add(9 * time.Hour), Height: 3, Period: 11, Direction: "W"},
		{Time: day1.Add(12 * time.Hour), Height: 4, Period: 12, Direction: "W"},
		{Time: day2.Add(6 * time.Hour), Height: 5, Period: 13, Direction: "WSW"},
	}
	tides := []ocean.TideEvent{
		{Time: day1.Add(15*time.Hour + 4*time.Minute).UTC(), Height: 4.2, Kind: ocean.HighTide},
		{Time: day2.Add(3 * time.Hour).UTC(), Height: 0.4, Kind: ocean.LowTide},
	}

	got, err := DailySummaries(waves, tides, la)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []DailySummary{{
		Date:      "2024-06-01",
		Day:       day1,
		DayName:   "Saturday",
		AvgHeight: 3,
		AvgPeriod: 11,
		Direction: "SW",
		Quality:   Fair,
		Tides: []DayTide{{
			Clock:  "03:04 PM",
			At:     tides[0].Time,
			Height: 4.2,
			Kind:   ocean.HighTide,
		}},
	}, {
		Date:      "2024-06-02",
		Day:       day2,
		DayName:   "Sunday",
		AvgHeight: 5,
		AvgPeriod: 13,
		Direction: "WSW",
		Quality:   Good,
		Tides: []DayTide{{
			Clock:  "03:00 AM",
			At:     tides[1].Time,
			Height: 0.4,
			Kind:   ocean.LowTide,
		}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("incorrect summaries (-want,+got):\n%s", diff)
	}

	again, err := DailySummaries(waves, tides, la)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("summaries not idempotent:\n%s", diff)
	}
}

func TestDailySummariesEmpty(t *testing.T) {
	got, err := DailySummaries(nil, []ocean.TideEvent{{Time: at(1, 0)}}, la)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d summaries, want none", len(got))
	}
}

func TestDailySummariesCap(t *testing.T) {
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	var waves []ocean.WavePoint
	for h := 0; h < 8*24; h += 3 {
		waves = append(waves, ocean.WavePoint{Time: start.Add(time.Duration(h) * time.Hour), Height: 3, Period: 12})
	}
	got, err := DailySummaries(waves, nil, la)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != MaxSummaryDays {
		t.Fatalf("got %d summaries, want %d", len(got), MaxSummaryDays)
	}
	// UTC midnight is the evening before in Los Angeles.
	if got[0].Date != "2024-05-31" {
		t.Errorf("first day %q, want 2024-05-31", got[0].Date)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Date >= got[i].Date {
			t.Errorf("summaries out of order: %q then %q", got[i-1].Date, got[i].Date)
		}
	}
}

func TestDailySummariesFewerDaysThanCap(t *testing.T) {
	waves := []ocean.WavePoint{
		{Time: at(3, 0), Height: 1},
		{Time: at(6, 0), Height: 1},
	}
	got, err := DailySummaries(waves, nil, la)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []DailySummary{{Date: "2024-06-01", DayName: "Saturday", AvgHeight: 1, Quality: Poor, Tides: []DayTide{}}}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(DailySummary{}, "Day")); diff != "" {
		t.Errorf("(-want,+got):\n%s", diff)
	}
}

func TestDailySummariesBadTimestamp(t *testing.T) {
	waves := []ocean.WavePoint{
		{Time: at(3, 0), Height: 1},
		{Height: 2},
	}
	_, err := DailySummaries(waves, nil, la)
	var terr *ocean.TimestampError
	if !errors.As(err, &terr) {
		t.Fatalf("got %v, want *ocean.TimestampError", err)
	}
	if terr.Series != ocean.WaveSeries || terr.Index != 1 {
		t.Errorf("got %s entry %d, want waves entry 1", terr.Series, terr.Index)
	}
}

func TestCurrentConditions(t *testing.T) {
	c := Conditions{
		Waves: []ocean.WavePoint{{Time: at(6, 0), Height: 3}, {Time: at(9, 0), Height: 4}},
		Tides: []ocean.TideEvent{
			{Time: at(6, 0), Height: 1, Kind: ocean.LowTide},
			{Time: at(12, 0), Height: 6, Kind: ocean.HighTide},
		},
	}
	got := CurrentConditions(c, at(8, 0))
	if got.Wave == nil || got.Wave.Height != 4 {
		t.Errorf("got wave %+v, want height 4", got.Wave)
	}
	if got.Tide == nil || got.Tide.Direction != Rising {
		t.Errorf("got tide %+v, want rising", got.Tide)
	}
	if got.Wind != nil {
		t.Errorf("got wind %+v, want nil", got.Wind)
	}
	if got.WaterTemp != nil {
		t.Errorf("got water temp %+v, want nil", got.WaterTemp)
	}
}

func TestDayTideJSON(t *testing.T) {
	at := time.Date(2024, time.June, 1, 22, 4, 0, 0, time.UTC)
	blob, err := json.Marshal(DayTide{Clock: "03:04 PM", At: at, Height: 4.2, Kind: ocean.HighTide})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(blob, &got); err != nil {
		t.Fatal(err)
	}
	if got["time"] != "03:04 PM" || got["at"] != "2024-06-01T22:04:00Z" {
		t.Errorf("got %s", blob)
	}
}
