package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/spencer-p/surfdash/pkg/data"
	"github.com/spencer-p/surfdash/pkg/forecast"
	"github.com/spencer-p/surfdash/pkg/meta"
	"github.com/spencer-p/surfdash/pkg/ocean"
	"github.com/spencer-p/surfdash/pkg/spots"
)

var now = time.Date(2024, time.June, 1, 19, 0, 0, 0, time.UTC)

type fakeForecaster struct {
	conditions meta.Conditions
	observed   *ocean.WindSample
	err        error
}

func (f *fakeForecaster) Conditions(ctx context.Context, spot spots.Spot) (*forecast.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &forecast.Snapshot{Spot: spot, Conditions: f.conditions, ObservedWind: f.observed, FetchedAt: now}, nil
}

type fakeStore struct {
	reports map[string]*data.Report
	err     error
}

func (s *fakeStore) Upsert(ctx context.Context, r *data.Report) error {
	if s.err != nil {
		return s.err
	}
	if s.reports == nil {
		s.reports = make(map[string]*data.Report)
	}
	s.reports[r.SpotName] = r
	return nil
}

func complete() meta.Conditions {
	var c meta.Conditions
	for i := 0; i < 48; i++ {
		c.Waves = append(c.Waves, ocean.WavePoint{
			Time:      now.Add(time.Duration(i) * time.Hour),
			Height:    4.5,
			Period:    12,
			Direction: "W",
		})
	}
	kind := ocean.LowTide
	for i := 0; i < 6; i++ {
		c.Tides = append(c.Tides, ocean.TideEvent{
			Time:   now.Add(time.Duration(6*i) * time.Hour),
			Height: float64(i % 2 * 5),
			Kind:   kind,
		})
		if kind == ocean.LowTide {
			kind = ocean.HighTide
		} else {
			kind = ocean.LowTide
		}
	}
	deg := 270.0
	c.Wind = []ocean.WindSample{
		{Time: now.Add(-time.Hour), SpeedMPH: 4},
		{Time: now, SpeedMPH: 9, DirectionDeg: &deg},
	}
	c.WaterTemp = &ocean.WaterTemp{TempF: 67.1, StationID: "46225", ObservedAt: now}
	return c
}

func tamarack(t *testing.T) spots.Spot {
	t.Helper()
	reg, err := spots.Default(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	spot, err := reg.Lookup("tamarack")
	if err != nil {
		t.Fatal(err)
	}
	return spot
}

func newBuilder(c meta.Conditions, store Store) *Builder {
	b := NewBuilder(&fakeForecaster{conditions: c}, store)
	b.now = func() time.Time { return now }
	return b
}

func TestBuild(t *testing.T) {
	r, err := newBuilder(complete(), nil).Build(context.Background(), tamarack(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.SpotName != "Tamarack" || r.RunID == "" {
		t.Errorf("got report %+v", r)
	}
	if r.WindSpeedMPH == nil || *r.WindSpeedMPH != 9 {
		t.Errorf("got wind %v, want the sample nearest now", r.WindSpeedMPH)
	}
	if r.WindDirectionDeg == nil || *r.WindDirectionDeg != 270 {
		t.Errorf("got wind direction %v", r.WindDirectionDeg)
	}
	if r.WaterTempF == nil || *r.WaterTempF != 67.1 {
		t.Errorf("got water temp %v", r.WaterTempF)
	}

	waves, err := ocean.DecodeWaves([]byte(r.WaveData))
	if err != nil {
		t.Fatalf("stored waves do not decode: %v", err)
	}
	if len(waves) != 48 {
		t.Errorf("got %d stored waves", len(waves))
	}

	var summaries []meta.DailySummary
	if err := json.Unmarshal([]byte(r.DailySummaries), &summaries); err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 3 || summaries[0].Label != "Good" {
		t.Errorf("got summaries %+v", summaries)
	}
	if err := Validate(r); err != nil {
		t.Errorf("complete report failed validation: %v", err)
	}
}

func TestBuildPrefersObservedWind(t *testing.T) {
	deg := 300.0
	b := NewBuilder(&fakeForecaster{
		conditions: complete(),
		observed:   &ocean.WindSample{Time: now.Add(-10 * time.Minute), SpeedMPH: 13.4, DirectionDeg: &deg},
	}, nil)
	b.now = func() time.Time { return now }

	r, err := b.Build(context.Background(), tamarack(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.WindSpeedMPH == nil || *r.WindSpeedMPH != 13.4 {
		t.Errorf("got wind %v, want the buoy reading", r.WindSpeedMPH)
	}
	if r.WindDirectionDeg == nil || *r.WindDirectionDeg != 300 {
		t.Errorf("got wind direction %v, want 300", r.WindDirectionDeg)
	}
}

func TestValidate(t *testing.T) {
	r, err := newBuilder(meta.Conditions{
		Waves: complete().Waves[:10],
		Tides: complete().Tides[:2],
	}, nil).Build(context.Background(), tamarack(t))
	if err != nil {
		t.Fatal(err)
	}

	err = Validate(r)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want a ValidationError", err)
	}
	want := []string{
		"missing water temperature",
		"missing current wind",
		"only 10 wave points, need 24",
		"only 2 tide events, need 4",
	}
	if diff := cmp.Diff(want, verr.Problems); diff != "" {
		t.Errorf("incorrect problems (-want,+got):\n%s", diff)
	}
}

func TestUpdate(t *testing.T) {
	store := &fakeStore{}
	b := newBuilder(complete(), store)
	spot := tamarack(t)

	u, err := b.Update(context.Background(), spot)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if u.Status != StatusSuccess {
		t.Errorf("got status %s", u.Status)
	}
	if diff := cmp.Diff(Counts{Waves: 48, Tides: 6, Wind: 2}, u.Counts); diff != "" {
		t.Errorf("incorrect counts (-want,+got):\n%s", diff)
	}
	first := store.reports["Tamarack"].RunID

	// A second run replaces the first.
	if _, err := b.Update(context.Background(), spot); err != nil {
		t.Fatal(err)
	}
	if len(store.reports) != 1 || store.reports["Tamarack"].RunID == first {
		t.Errorf("second update did not replace the report")
	}
}

func TestUpdateFailures(t *testing.T) {
	spot := tamarack(t)
	incomplete := complete()
	incomplete.WaterTemp = nil

	table := []struct {
		name    string
		builder *Builder
		want    Status
	}{{
		name:    "invalid",
		builder: newBuilder(incomplete, &fakeStore{}),
		want:    StatusInvalid,
	}, {
		name:    "store error",
		builder: newBuilder(complete(), &fakeStore{err: errors.New("connection refused")}),
		want:    StatusError,
	}, {
		name:    "no store",
		builder: newBuilder(complete(), nil),
		want:    StatusError,
	}, {
		name:    "forecast error",
		builder: NewBuilder(&fakeForecaster{err: context.DeadlineExceeded}, &fakeStore{}),
		want:    StatusError,
	}}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			u, err := tc.builder.Update(context.Background(), spot)
			if err == nil {
				t.Errorf("expected an error")
			}
			if u.Status != tc.want {
				t.Errorf("got status %s, want %s", u.Status, tc.want)
			}
			if u.Message == "" {
				t.Errorf("update has no message")
			}
		})
	}
}
