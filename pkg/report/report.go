// Package report publishes a spot's forecast as a stored surf report. A
// report is only written when it is complete enough to be useful.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spencer-p/surfdash/pkg/data"
	"github.com/spencer-p/surfdash/pkg/forecast"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/metrics"
	"github.com/spencer-p/surfdash/pkg/spots"
)

// Minimum series lengths of a publishable report.
const (
	MinWavePoints = 24
	MinTideEvents = 4
)

type Forecaster interface {
	Conditions(ctx context.Context, spot spots.Spot) (*forecast.Snapshot, error)
}

type Store interface {
	Upsert(ctx context.Context, r *data.Report) error
}

// ValidationError lists everything missing from a report.
type ValidationError struct {
	Spot     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report for %s is incomplete: %s", e.Spot, strings.Join(e.Problems, "; "))
}

// Validate reports whether r may be published.
func Validate(r *data.Report) error {
	var problems []string
	if r.WaterTempF == nil {
		problems = append(problems, "missing water temperature")
	}
	if r.WindSpeedMPH == nil {
		problems = append(problems, "missing current wind")
	}
	if r.WavePoints < MinWavePoints {
		problems = append(problems, fmt.Sprintf("only %d wave points, need %d", r.WavePoints, MinWavePoints))
	}
	if r.TideEvents < MinTideEvents {
		problems = append(problems, fmt.Sprintf("only %d tide events, need %d", r.TideEvents, MinTideEvents))
	}
	if len(problems) > 0 {
		return &ValidationError{Spot: r.SpotName, Problems: problems}
	}
	return nil
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusInvalid Status = "invalid"
	StatusError   Status = "error"
)

type Counts struct {
	Waves int `json:"waves"`
	Tides int `json:"tides"`
	Wind  int `json:"wind"`
}

// Update summarizes one refresh of a spot's report.
type Update struct {
	Spot    string `json:"spot"`
	RunID   string `json:"run_id,omitempty"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Counts  Counts `json:"counts"`
}

type Builder struct {
	forecasts Forecaster
	store     Store
	now       func() time.Time
}

// NewBuilder returns a builder publishing to store. store may be nil for a
// builder that is only used to Build.
func NewBuilder(forecasts Forecaster, store Store) *Builder {
	return &Builder{
		forecasts: forecasts,
		store:     store,
		now:       time.Now,
	}
}

// Build assembles the current report of spot without validating it.
func (b *Builder) Build(ctx context.Context, spot spots.Spot) (*data.Report, error) {
	snap, err := b.forecasts.Conditions(ctx, spot)
	if err != nil {
		return nil, fmt.Errorf("failed to load conditions for %s: %w", spot.Name, err)
	}
	now := b.now()
	summaries, err := snap.Summaries()
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", spot.Name, err)
	}

	r := &data.Report{
		SpotName:    spot.Name,
		RunID:       uuid.NewString(),
		GeneratedAt: now.UTC(),
		StreamLink:  spot.StreamLink,
		WavePoints:  len(snap.Conditions.Waves),
		TideEvents:  len(snap.Conditions.Tides),
		WindSamples: len(snap.Conditions.Wind),
	}
	if w := snap.Conditions.WaterTemp; w != nil {
		temp := w.TempF
		r.WaterTempF = &temp
	}
	if wind := snap.Current(now).Wind; wind != nil {
		speed := wind.SpeedMPH
		r.WindSpeedMPH = &speed
		r.WindDirectionDeg = wind.DirectionDeg
	}

	fields := []struct {
		dst *string
		v   interface{}
	}{
		{&r.SpotConfig, spot},
		{&r.WaveData, snap.Conditions.Waves},
		{&r.TideData, snap.Conditions.Tides},
		{&r.WindData, snap.Conditions.Wind},
		{&r.DailySummaries, summaries},
	}
	for _, f := range fields {
		buf, err := json.Marshal(f.v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode report for %s: %w", spot.Name, err)
		}
		*f.dst = string(buf)
	}
	return r, nil
}

// Update builds, validates and stores the report of spot.
func (b *Builder) Update(ctx context.Context, spot spots.Spot) (Update, error) {
	u := Update{Spot: spot.Name}
	defer func() {
		metrics.ObserveReportUpdate(spot.Name, string(u.Status))
	}()

	r, err := b.Build(ctx, spot)
	if err != nil {
		u.Status, u.Message = StatusError, err.Error()
		return u, err
	}
	u.RunID = r.RunID
	u.Counts = Counts{Waves: r.WavePoints, Tides: r.TideEvents, Wind: r.WindSamples}

	if err := Validate(r); err != nil {
		logger.Warnf("Not publishing %s: %v", spot.Name, err)
		u.Status, u.Message = StatusInvalid, err.Error()
		return u, err
	}
	if b.store == nil {
		u.Status, u.Message = StatusError, "no report store configured"
		return u, fmt.Errorf("report for %s: %s", spot.Name, u.Message)
	}
	if err := b.store.Upsert(ctx, r); err != nil {
		u.Status, u.Message = StatusError, err.Error()
		return u, fmt.Errorf("failed to store report for %s: %w", spot.Name, err)
	}

	u.Status = StatusSuccess
	u.Message = fmt.Sprintf("Published %s with %d wave points and %d tide events", spot.Name, r.WavePoints, r.TideEvents)
	logger.Infof("%s (run %s)", u.Message, u.RunID)
	return u, nil
}
