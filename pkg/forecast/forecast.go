// Package forecast gathers every series a spot's forecast needs. Each source
// is read through the cache, fetched on a miss, and reported with its own
// outcome so one failing upstream never hides the others.
package forecast

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spencer-p/surfdash/pkg/cache"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/meta"
	"github.com/spencer-p/surfdash/pkg/metrics"
	"github.com/spencer-p/surfdash/pkg/ocean"
	"github.com/spencer-p/surfdash/pkg/spots"
)

// How long each category stays cached.
const (
	WaveTTL      = time.Hour
	TideTTL      = 6 * time.Hour
	WindTTL      = time.Hour
	WaterTempTTL = time.Hour

	// Buoys report every ten to thirty minutes.
	ObservedWindTTL = 15 * time.Minute
)

// MaxObservationAge is how old a buoy wind reading may be before the GFS
// forecast is used instead.
const MaxObservationAge = 3 * time.Hour

type WaveSource interface {
	FetchWaves(ctx context.Context, loc ocean.Location, horizon time.Duration) ([]ocean.WavePoint, error)
}

type TideSource interface {
	FetchTides(ctx context.Context, station string, start, end time.Time) ([]ocean.TideEvent, error)
}

type WindSource interface {
	FetchWind(ctx context.Context, loc ocean.Location, horizon time.Duration) ([]ocean.WindSample, error)
}

// WaterTempSource returns nil without error when no station has a reading.
type WaterTempSource interface {
	FetchWaterTemp(ctx context.Context, stations []string) (*ocean.WaterTemp, error)
}

// ObservedWindSource returns nil without error when no station has a reading.
type ObservedWindSource interface {
	FetchObservedWind(ctx context.Context, stations []string) (*ocean.WindSample, error)
}

// Sources are the upstreams of a forecast. ObservedWind is optional.
type Sources struct {
	Waves        WaveSource
	Tides        TideSource
	Wind         WindSource
	WaterTemp    WaterTempSource
	ObservedWind ObservedWindSource
}

type Config struct {
	// FetchTimeout bounds each upstream fetch.
	FetchTimeout time.Duration
	// Horizon is how far ahead series are fetched.
	Horizon time.Duration
	// BackupBuoys are tried for buoy readings after a spot's own buoy.
	BackupBuoys []string
}

// Status is how a source fared.
type Status string

const (
	StatusOK     Status = "ok"
	StatusNoData Status = "no_data"
	StatusFailed Status = "failed"
)

// Outcome reports one source of a snapshot.
type Outcome struct {
	Source      string `json:"source"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Cached      bool   `json:"cached"`
	Error       string `json:"error,omitempty"`
	Err         error  `json:"-"`
}

// Snapshot is everything known about a spot at FetchedAt.
type Snapshot struct {
	Spot       spots.Spot
	Conditions meta.Conditions
	// ObservedWind is the latest buoy wind reading, if any.
	ObservedWind *ocean.WindSample
	Outcomes     []Outcome
	FetchedAt    time.Time
}

// Current is the snapshot's conditions at now. A buoy wind reading observed
// within MaxObservationAge of now replaces the forecast wind.
func (s *Snapshot) Current(now time.Time) meta.Current {
	cur := meta.CurrentConditions(s.Conditions, now)
	if obs := s.ObservedWind; obs != nil && absDuration(now.Sub(obs.Time)) <= MaxObservationAge {
		w := *obs
		cur.Wind = &w
	}
	return cur
}

// Summaries is the snapshot's daily summaries in the spot's time zone.
func (s *Snapshot) Summaries() ([]meta.DailySummary, error) {
	return meta.DailySummaries(s.Conditions.Waves, s.Conditions.Tides, s.Spot.Zone())
}

// Outcome returns the outcome for source.
func (s *Snapshot) Outcome(source string) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.Source == source {
			return o, true
		}
	}
	return Outcome{}, false
}

// Service is safe for concurrent use.
type Service struct {
	sources Sources
	cache   cache.Store
	cfg     Config
	now     func() time.Time
}

func New(sources Sources, store cache.Store, cfg Config) *Service {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 7 * 24 * time.Hour
	}
	return &Service{
		sources: sources,
		cache:   store,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Conditions loads every series for spot concurrently. A source that fails is
// reported in the snapshot's outcomes, never as an error; the error is only
// non-nil when ctx ends first.
func (s *Service) Conditions(ctx context.Context, spot spots.Spot) (*Snapshot, error) {
	now := s.now()
	loc := spot.Location()
	slug := spot.Slug()
	stations := buoys(spot.BuoyStation, s.cfg.BackupBuoys)
	n := 4
	if s.sources.ObservedWind != nil {
		n++
	}
	snap := &Snapshot{
		Spot:      spot,
		Outcomes:  make([]Outcome, n),
		FetchedAt: now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(snap.Outcomes))

	g.Go(func() error {
		snap.Conditions.Waves, snap.Outcomes[0] = load(gctx, s, source{
			name:        ocean.WaveSeries,
			description: "NOAA GFS Wave Model",
			key:         ocean.WaveSeries + ":" + slug,
			ttl:         WaveTTL,
		}, ocean.DecodeWaves, func(ctx context.Context) ([]ocean.WavePoint, error) {
			return s.sources.Waves.FetchWaves(ctx, loc, s.cfg.Horizon)
		}, func(v []ocean.WavePoint) bool { return len(v) == 0 })
		return nil
	})
	g.Go(func() error {
		snap.Conditions.Tides, snap.Outcomes[1] = load(gctx, s, source{
			name:        ocean.TideSeries,
			description: "NOAA Tide Station " + spot.TideStation,
			key:         ocean.TideSeries + ":" + slug,
			ttl:         TideTTL,
		}, ocean.DecodeTides, func(ctx context.Context) ([]ocean.TideEvent, error) {
			// Start a day early so the tide in progress has a previous extreme.
			return s.sources.Tides.FetchTides(ctx, spot.TideStation, now.Add(-24*time.Hour), now.Add(s.cfg.Horizon))
		}, func(v []ocean.TideEvent) bool { return len(v) == 0 })
		return nil
	})
	g.Go(func() error {
		snap.Conditions.Wind, snap.Outcomes[2] = load(gctx, s, source{
			name:        ocean.WindSeries,
			description: "NOAA GFS",
			key:         ocean.WindSeries + ":" + slug,
			ttl:         WindTTL,
		}, ocean.DecodeWind, func(ctx context.Context) ([]ocean.WindSample, error) {
			return s.sources.Wind.FetchWind(ctx, loc, s.cfg.Horizon)
		}, func(v []ocean.WindSample) bool { return len(v) == 0 })
		return nil
	})
	g.Go(func() error {
		snap.Conditions.WaterTemp, snap.Outcomes[3] = load(gctx, s, source{
			name:        ocean.WaterSeries,
			description: "NOAA NDBC Buoy " + spot.BuoyStation,
			key:         ocean.WaterSeries + ":" + slug,
			ttl:         WaterTempTTL,
		}, ocean.DecodeWaterTemp, func(ctx context.Context) (*ocean.WaterTemp, error) {
			return s.sources.WaterTemp.FetchWaterTemp(ctx, stations)
		}, func(v *ocean.WaterTemp) bool { return v == nil })
		return nil
	})
	if s.sources.ObservedWind != nil {
		g.Go(func() error {
			snap.ObservedWind, snap.Outcomes[4] = load(gctx, s, source{
				name:        ocean.ObservedWindSeries,
				description: "NOAA NDBC Buoy " + spot.BuoyStation + " wind",
				key:         ocean.ObservedWindSeries + ":" + slug,
				ttl:         ObservedWindTTL,
			}, ocean.DecodeObservedWind, func(ctx context.Context) (*ocean.WindSample, error) {
				return s.sources.ObservedWind.FetchObservedWind(ctx, stations)
			}, func(v *ocean.WindSample) bool { return v == nil })
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

type source struct {
	name, description string
	key               string
	ttl               time.Duration
}

// load reads one series through the cache. Cache failures of any kind fall
// through to a fetch. Empty results are reported as no data and not cached.
func load[T any](ctx context.Context, s *Service, src source,
	decode func([]byte) (T, error),
	fetch func(context.Context) (T, error),
	empty func(T) bool,
) (T, Outcome) {
	out := Outcome{Source: src.name, Description: src.description}
	defer func() {
		metrics.ObserveSourceFetch(out.Source, string(out.Status), out.Cached)
	}()

	if s.cache != nil {
		blob, ok, err := s.cache.Get(ctx, src.key)
		switch {
		case err != nil:
			metrics.ObserveCacheLookup(src.name, "error")
			logger.Warnf("Cache read of %s failed: %v", src.key, err)
		case !ok:
			metrics.ObserveCacheLookup(src.name, "miss")
		default:
			v, err := decode(blob)
			if err == nil {
				metrics.ObserveCacheLookup(src.name, "hit")
				out.Cached = true
				out.Status = statusOf(empty(v))
				return v, out
			}
			metrics.ObserveCacheLookup(src.name, "error")
			logger.Warnf("Discarding undecodable cache entry %s: %v", src.key, err)
		}
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	v, err := fetch(fctx)
	if err != nil {
		logger.Errorf("Failed to fetch %s: %v", src.key, err)
		var zero T
		out.Status, out.Err, out.Error = StatusFailed, err, err.Error()
		return zero, out
	}

	out.Status = statusOf(empty(v))
	if out.Status == StatusOK && s.cache != nil {
		if blob, err := json.Marshal(v); err != nil {
			logger.Warnf("Failed to encode %s for cache: %v", src.key, err)
		} else if err := s.cache.Put(ctx, src.key, blob, src.ttl); err != nil {
			logger.Warnf("Cache write of %s failed: %v", src.key, err)
		}
	}
	return v, out
}

func statusOf(empty bool) Status {
	if empty {
		return StatusNoData
	}
	return StatusOK
}

// buoys lists primary first, then each backup once.
func buoys(primary string, backups []string) []string {
	seen := map[string]bool{primary: true}
	out := []string{primary}
	for _, b := range backups {
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
