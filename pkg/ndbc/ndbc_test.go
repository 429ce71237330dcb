package ndbc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/spencer-p/surfdash/pkg/fetch"
	"github.com/spencer-p/surfdash/pkg/ocean"
)

const sample46225 = `#YY  MM DD hh mm WDIR WSPD GST  WVHT   DPD   APD MWD   PRES  ATMP  WTMP  DEWP  VIS PTDY  TIDE
#yr  mo dy hr mn degT m/s  m/s     m   sec   sec degT   hPa  degC  degC  degC  nmi  hPa    ft
2024 06 01 12 56  MM   MM   MM   0.9    13   6.8 252     MM    MM  18.5    MM   MM   MM    MM
2024 06 01 12 26  MM   MM   MM   0.9    13   6.9 249     MM    MM  18.4    MM   MM   MM    MM
`

const sampleNoTemp = `#YY  MM DD hh mm WDIR WSPD GST  WVHT   DPD   APD MWD   PRES  ATMP  WTMP  DEWP  VIS PTDY  TIDE
#yr  mo dy hr mn degT m/s  m/s     m   sec   sec degT   hPa  degC  degC  degC  nmi  hPa    ft
2024 06 01 12 50 290  5.0  6.0    MM    MM    MM  MM 1013.2  16.1    MM  12.0   MM   MM    MM
`

func TestParse(t *testing.T) {
	obs, err := Parse("46225", []byte(sample46225))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	first := obs[0]
	if want := time.Date(2024, time.June, 1, 12, 56, 0, 0, time.UTC); !first.Time.Equal(want) {
		t.Errorf("got time %s, want %s", first.Time, want)
	}
	if first.WindSpeed != nil || first.WindDir != nil {
		t.Errorf("missing wind should be nil, got %v %v", first.WindSpeed, first.WindDir)
	}
	if first.WaterTemp == nil || *first.WaterTemp != 18.5 {
		t.Errorf("got water temp %v, want 18.5", first.WaterTemp)
	}
}

func TestParsePlaceholders(t *testing.T) {
	const header = `#YY  MM DD hh mm WDIR WSPD GST  WVHT   DPD   APD MWD   PRES  ATMP  WTMP  DEWP  VIS PTDY  TIDE
#yr  mo dy hr mn degT m/s  m/s     m   sec   sec degT   hPa  degC  degC  degC  nmi  hPa    ft
`
	ptr := func(f float64) *float64 { return &f }
	cases := map[string]struct {
		row  string
		want Observation
	}{
		"east of ESE is a real bearing": {
			row:  "2024 06 01 12 50  99  5.0  6.0    MM    MM    MM  MM 1013.2  16.1  19.0  12.0   MM   MM    MM",
			want: Observation{WindDir: ptr(99), WindSpeed: ptr(5), AirTemp: ptr(16.1), WaterTemp: ptr(19)},
		},
		"placeholders": {
			row:  "2024 06 01 12 50 999 99.0 99.0 99.00    99    99 999 9999.0 999.0 999.0 999.0 99.0 99.0 99.00",
			want: Observation{},
		},
		"missing": {
			row:  "2024 06 01 12 50  MM   MM   MM    MM    MM    MM  MM     MM    MM    MM    MM   MM   MM    MM",
			want: Observation{},
		},
		"calm from the north": {
			row:  "2024 06 01 12 50   0  0.0  0.0    MM    MM    MM  MM     MM   9.0   9.0    MM   MM   MM    MM",
			want: Observation{WindDir: ptr(0), WindSpeed: ptr(0), AirTemp: ptr(9), WaterTemp: ptr(9)},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			obs, err := Parse("46225", []byte(header+tc.row+"\n"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(obs) != 1 {
				t.Fatalf("got %d observations, want 1", len(obs))
			}
			tc.want.Station = "46225"
			tc.want.Time = time.Date(2024, time.June, 1, 12, 50, 0, 0, time.UTC)
			if diff := cmp.Diff(tc.want, obs[0]); diff != "" {
				t.Errorf("incorrect observation (-want,+got):\n%s", diff)
			}
		})
	}
}

func TestParseBadDate(t *testing.T) {
	body := strings.Replace(sample46225, "2024 06 01 12 26", "2024 XX 01 12 26", 1)
	_, err := Parse("46225", []byte(body))
	var terr *ocean.TimestampError
	if !errors.As(err, &terr) {
		t.Fatalf("got %v, want *ocean.TimestampError", err)
	}
	if terr.Index != 1 {
		t.Errorf("got index %d, want 1", terr.Index)
	}
}

func buoyServer(t *testing.T, files map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(fetch.New(fetch.Config{Name: t.Name()}))
	c.BaseURL = srv.URL
	return c
}

func TestFetchWaterTempFallsBack(t *testing.T) {
	c := buoyServer(t, map[string]string{
		"46232.txt": sampleNoTemp,
		"46086.txt": strings.ReplaceAll(sample46225, "18.5", "20.0"),
	})

	got, err := c.FetchWaterTemp(context.Background(), []string{"46225", "46232", "46086"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a reading from the backup buoy")
	}
	if got.StationID != "46086" || got.Station != "San Clemente Basin" {
		t.Errorf("got station %s (%s)", got.Station, got.StationID)
	}
	if math.Abs(got.TempF-68) > 1e-9 {
		t.Errorf("got %g F, want 68", got.TempF)
	}
}

func TestFetchWaterTempNoData(t *testing.T) {
	c := buoyServer(t, map[string]string{"46232.txt": sampleNoTemp})
	got, err := c.FetchWaterTemp(context.Background(), []string{"46232"})
	if err != nil || got != nil {
		t.Errorf("got %+v, %v; want no data", got, err)
	}
}

func TestFetchWaterTempAllFail(t *testing.T) {
	c := buoyServer(t, nil)
	_, err := c.FetchWaterTemp(context.Background(), []string{"46225", "46232"})
	if !errors.Is(err, fetch.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestFetchObservedWind(t *testing.T) {
	c := buoyServer(t, map[string]string{
		"46225.txt": sample46225,
		"46232.txt": sampleNoTemp,
	})

	got, err := c.FetchObservedWind(context.Background(), []string{"46225", "46232"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected wind from the backup buoy")
	}
	if want := time.Date(2024, time.June, 1, 12, 50, 0, 0, time.UTC); !got.Time.Equal(want) {
		t.Errorf("got time %s, want %s", got.Time, want)
	}
	if math.Abs(got.SpeedMPH-11.1847) > 1e-3 {
		t.Errorf("got %g mph, want 11.18", got.SpeedMPH)
	}
	if got.DirectionDeg == nil || *got.DirectionDeg != 290 {
		t.Errorf("got direction %v, want 290", got.DirectionDeg)
	}
	if got.AirTempF == nil || math.Abs(*got.AirTempF-60.98) > 1e-9 {
		t.Errorf("got air temp %v, want 60.98", got.AirTempF)
	}
}

func TestFetchObservedWindNoData(t *testing.T) {
	c := buoyServer(t, map[string]string{"46225.txt": sample46225})
	got, err := c.FetchObservedWind(context.Background(), []string{"46225", "46232"})
	if err != nil || got != nil {
		t.Errorf("got %+v, %v; want no data", got, err)
	}
}
