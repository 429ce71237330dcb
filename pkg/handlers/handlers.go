package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/time/rate"

	"github.com/spencer-p/surfdash/pkg/data"
	"github.com/spencer-p/surfdash/pkg/forecast"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/meta"
	"github.com/spencer-p/surfdash/pkg/noaa/splines"
	"github.com/spencer-p/surfdash/pkg/ocean"
	"github.com/spencer-p/surfdash/pkg/spots"
)

const (
	chartStep = time.Hour
	spotVar   = "spot"
)

// Forecaster loads the conditions of a spot.
type Forecaster interface {
	Conditions(ctx context.Context, spot spots.Spot) (*forecast.Snapshot, error)
}

// ReportReader returns the last published report of a spot, or an error
// wrapping data.ErrNoReport.
type ReportReader interface {
	Get(ctx context.Context, spot string) (*data.Report, error)
}

type Options struct {
	// Prefix is the path the router is mounted under.
	Prefix      string
	DefaultSpot string
	// DataDir is where /static/ files are served from.
	DataDir       string
	SessionKey    string
	EncryptionKey string
	// RateLimit and RateBurst bound requests from a single client.
	RateLimit rate.Limit
	RateBurst int
	// TrustProxy identifies clients by X-Forwarded-For.
	TrustProxy bool
	// Reports serves published reports. Nil when none are published.
	Reports ReportReader
}

type Server struct {
	registry    *spots.Registry
	forecasts   Forecaster
	reports     ReportReader
	store       *sessions.CookieStore
	index       *template.Template
	limiter     *clientLimiter
	prefix      string
	defaultSpot spots.Spot
	dataDir     string
	now         func() time.Time
}

var validate = validator.New()

// New builds a server rendering pages from the templates in content.
func New(registry *spots.Registry, forecasts Forecaster, content fs.FS, opts Options) (*Server, error) {
	def, err := registry.Lookup(opts.DefaultSpot)
	if err != nil {
		return nil, fmt.Errorf("default spot: %w", err)
	}
	index, err := template.New("index.template.html").Funcs(templateFuncs).ParseFS(content, "static/index.template.html")
	if err != nil {
		return nil, err
	}
	if opts.Prefix == "" {
		opts.Prefix = "/"
	}
	if opts.DataDir == "" {
		opts.DataDir = "."
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Inf
	}
	return &Server{
		registry:    registry,
		forecasts:   forecasts,
		reports:     opts.Reports,
		store:       newSessionStore(opts.SessionKey, opts.EncryptionKey),
		index:       index,
		limiter:     newClientLimiter(opts.RateLimit, opts.RateBurst, opts.TrustProxy),
		prefix:      opts.Prefix,
		defaultSpot: def,
		dataDir:     opts.DataDir,
		now:         time.Now,
	}, nil
}

// Register mounts every route on r. Pages and the API are rate limited per
// client.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", s.serveHealth).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix(s.prefix, http.FileServer(http.Dir(s.dataDir))))

	limited := r.NewRoute().Subrouter()
	limited.Use(s.limiter.Middleware)
	limited.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	limited.HandleFunc("/spots/{spot}", s.serveSpot).Methods(http.MethodGet)
	limited.HandleFunc("/spots/{spot}/favorite", s.saveFavorite).Methods(http.MethodPost)

	api := limited.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/spots", s.serveSpots).Methods(http.MethodGet)
	api.HandleFunc("/spots/{spot}/forecast", s.serveForecast).Methods(http.MethodGet)
	api.HandleFunc("/spots/{spot}/current", s.serveCurrent).Methods(http.MethodGet)
	api.HandleFunc("/spots/{spot}/report", s.serveReport).Methods(http.MethodGet)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// spotFromRequest resolves the spot path variable, writing a 404 if it names
// no known spot.
func (s *Server) spotFromRequest(w http.ResponseWriter, r *http.Request) (spots.Spot, bool) {
	spot, err := s.registry.Lookup(mux.Vars(r)[spotVar])
	if errors.Is(err, spots.ErrUnknownSpot) {
		writeError(w, http.StatusNotFound, err)
		return spots.Spot{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return spots.Spot{}, false
	}
	return spot, true
}

// conditions loads a spot's snapshot and summaries, writing a 500 on failure.
func (s *Server) conditions(w http.ResponseWriter, r *http.Request, spot spots.Spot) (*forecast.Snapshot, []meta.DailySummary, bool) {
	snap, err := s.forecasts.Conditions(r.Context(), spot)
	if err != nil {
		err = fmt.Errorf("failed to load conditions for %s: %w", spot.Name, err)
		logger.Errorf("%v", err)
		writeError(w, http.StatusInternalServerError, err)
		return nil, nil, false
	}
	summaries, err := snap.Summaries()
	if err != nil {
		err = fmt.Errorf("failed to summarize %s: %w", spot.Name, err)
		logger.Errorf("%v", err)
		writeError(w, http.StatusInternalServerError, err)
		return nil, nil, false
	}
	return snap, summaries, true
}

func (s *Server) serveSpots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"default": s.defaultSpot.Name,
		"spots":   s.registry.All(),
	})
}

type chartPoint struct {
	Time      time.Time `json:"time"`
	Height    float64   `json:"height"`
	Period    float64   `json:"period,omitempty"`
	Direction string    `json:"direction,omitempty"`
}

type chartData struct {
	WaveData  []chartPoint      `json:"wave_data"`
	TideData  []ocean.TideEvent `json:"tide_data"`
	TideCurve []chartPoint      `json:"tide_curve"`
}

type forecastResponse struct {
	Location    ocean.Location      `json:"location"`
	Forecast    []meta.DailySummary `json:"forecast"`
	ChartData   chartData           `json:"chart_data"`
	GeneratedAt time.Time           `json:"generated_at"`
	DataSources map[string]string   `json:"data_sources"`
	Outcomes    []forecast.Outcome  `json:"outcomes"`
}

func (s *Server) serveForecast(w http.ResponseWriter, r *http.Request) {
	spot, ok := s.spotFromRequest(w, r)
	if !ok {
		return
	}
	days := meta.MaxSummaryDays
	if q := r.FormValue("days"); q != "" {
		n, err := strconv.Atoi(q)
		if err == nil {
			err = validate.Var(n, "gte=1,lte=5")
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("days must be between 1 and %d", meta.MaxSummaryDays))
			return
		}
		days = n
	}

	snap, summaries, ok := s.conditions(w, r, spot)
	if !ok {
		return
	}
	if len(summaries) > days {
		summaries = summaries[:days]
	}
	for i := range summaries {
		summaries[i].AvgHeight = round(summaries[i].AvgHeight, 1)
		summaries[i].AvgPeriod = round(summaries[i].AvgPeriod, 0)
	}

	resp := forecastResponse{
		Location:    spot.Location(),
		Forecast:    summaries,
		GeneratedAt: snap.FetchedAt.UTC(),
		DataSources: make(map[string]string, len(snap.Outcomes)),
		Outcomes:    snap.Outcomes,
		ChartData: chartData{
			WaveData:  make([]chartPoint, 0, len(snap.Conditions.Waves)),
			TideData:  snap.Conditions.Tides,
			TideCurve: []chartPoint{},
		},
	}
	if resp.ChartData.TideData == nil {
		resp.ChartData.TideData = []ocean.TideEvent{}
	}
	for _, o := range snap.Outcomes {
		resp.DataSources[o.Source] = o.Description
	}
	for _, wp := range snap.Conditions.Waves {
		resp.ChartData.WaveData = append(resp.ChartData.WaveData, chartPoint{
			Time:      wp.Time,
			Height:    round(wp.Height, 1),
			Period:    round(wp.Period, 0),
			Direction: wp.Direction,
		})
	}
	if len(snap.Conditions.Tides) > 1 {
		for _, e := range splines.CurvesBetween(snap.Conditions.Tides).Sample(chartStep) {
			resp.ChartData.TideCurve = append(resp.ChartData.TideCurve, chartPoint{
				Time:   e.Time,
				Height: round(e.Height, 2),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type waveNow struct {
	Height    float64   `json:"height"`
	Period    float64   `json:"period"`
	Direction string    `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

type tideNow struct {
	CurrentHeight float64   `json:"current_height"`
	Direction     string    `json:"direction"`
	NextTime      string    `json:"next_time"`
	NextHeight    float64   `json:"next_height"`
	NextType      string    `json:"next_type"`
	Progress      float64   `json:"progress"`
	Timestamp     time.Time `json:"timestamp"`
}

type windNow struct {
	SpeedMPH     float64   `json:"wind_speed_mph"`
	SpeedKnots   float64   `json:"wind_speed_kts"`
	Direction    string    `json:"wind_direction"`
	DirectionDeg *float64  `json:"wind_direction_deg,omitempty"`
	Strength     string    `json:"wind_strength"`
	Timestamp    time.Time `json:"timestamp"`
}

type waterNow struct {
	TempF     float64   `json:"temp_f"`
	TempC     float64   `json:"temp_c"`
	Station   string    `json:"station"`
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
}

type currentResponse struct {
	Spot        string             `json:"spot"`
	Waves       *waveNow           `json:"waves"`
	CurrentTide *tideNow           `json:"current_tide"`
	Wind        *windNow           `json:"wind"`
	WaterTemp   *waterNow          `json:"water_temp"`
	Outcomes    []forecast.Outcome `json:"outcomes"`
}

// currentOf presents the conditions of snap at now. Pieces without data stay
// nil.
func currentOf(snap *forecast.Snapshot, now time.Time) currentResponse {
	cur := snap.Current(now)
	zone := snap.Spot.Zone()
	resp := currentResponse{Spot: snap.Spot.Name, Outcomes: snap.Outcomes}

	if w := cur.Wave; w != nil {
		resp.Waves = &waveNow{
			Height:    round(w.Height, 1),
			Period:    round(w.Period, 0),
			Direction: w.Direction,
			Timestamp: w.Time,
		}
	}
	if t := cur.Tide; t != nil {
		resp.CurrentTide = &tideNow{
			CurrentHeight: round(t.Height, 1),
			Direction:     string(t.Direction),
			NextTime:      t.Next.Time.In(zone).Format("03:04 PM"),
			NextHeight:    round(t.Next.Height, 1),
			NextType:      t.Next.Kind.String(),
			Progress:      round(t.Progress, 2),
			Timestamp:     now.UTC(),
		}
	}
	if w := cur.Wind; w != nil {
		resp.Wind = &windNow{
			SpeedMPH:     round(w.SpeedMPH, 1),
			SpeedKnots:   round(w.Knots(), 1),
			Direction:    w.Compass(),
			DirectionDeg: w.DirectionDeg,
			Strength:     w.Strength(),
			Timestamp:    w.Time,
		}
	}
	if wt := cur.WaterTemp; wt != nil {
		resp.WaterTemp = &waterNow{
			TempF:     round(wt.TempF, 1),
			TempC:     round(wt.TempC(), 1),
			Station:   wt.Station,
			StationID: wt.StationID,
			Timestamp: wt.ObservedAt,
		}
	}
	return resp
}

func (s *Server) serveCurrent(w http.ResponseWriter, r *http.Request) {
	spot, ok := s.spotFromRequest(w, r)
	if !ok {
		return
	}
	snap, err := s.forecasts.Conditions(r.Context(), spot)
	if err != nil {
		err = fmt.Errorf("failed to load conditions for %s: %w", spot.Name, err)
		logger.Errorf("%v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, currentOf(snap, s.now()))
}

type reportCounts struct {
	Waves int `json:"waves"`
	Tides int `json:"tides"`
	Wind  int `json:"wind"`
}

type reportResponse struct {
	Spot             string          `json:"spot"`
	RunID            string          `json:"run_id"`
	GeneratedAt      time.Time       `json:"generated_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	WaterTempF       *float64        `json:"water_temp_f"`
	WindSpeedMPH     *float64        `json:"wind_speed_mph"`
	WindDirectionDeg *float64        `json:"wind_direction_deg"`
	StreamLink       string          `json:"stream_link,omitempty"`
	Forecast         json.RawMessage `json:"forecast"`
	WaveData         json.RawMessage `json:"wave_data"`
	TideData         json.RawMessage `json:"tide_data"`
	WindData         json.RawMessage `json:"wind_data"`
	Counts           reportCounts    `json:"counts"`
}

// serveReport returns the spot's last published report as stored.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request) {
	spot, ok := s.spotFromRequest(w, r)
	if !ok {
		return
	}
	if s.reports == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w %q: reports are not published", data.ErrNoReport, spot.Name))
		return
	}
	rep, err := s.reports.Get(r.Context(), spot.Name)
	if errors.Is(err, data.ErrNoReport) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to read report for %s: %w", spot.Name, err)
		logger.Errorf("%v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Spot:             rep.SpotName,
		RunID:            rep.RunID,
		GeneratedAt:      rep.GeneratedAt.UTC(),
		UpdatedAt:        rep.UpdatedAt.UTC(),
		WaterTempF:       rep.WaterTempF,
		WindSpeedMPH:     rep.WindSpeedMPH,
		WindDirectionDeg: rep.WindDirectionDeg,
		StreamLink:       rep.StreamLink,
		Forecast:         rawJSON(rep.DailySummaries),
		WaveData:         rawJSON(rep.WaveData),
		TideData:         rawJSON(rep.TideData),
		WindData:         rawJSON(rep.WindData),
		Counts:           reportCounts{Waves: rep.WavePoints, Tides: rep.TideEvents, Wind: rep.WindSamples},
	})
}

// rawJSON passes stored JSON through, or null if the column is not valid JSON.
func rawJSON(s string) json.RawMessage {
	if !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode JSON result: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
