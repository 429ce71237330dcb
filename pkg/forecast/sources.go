package forecast

import (
	"time"

	"github.com/spencer-p/surfdash/pkg/fetch"
	"github.com/spencer-p/surfdash/pkg/ndbc"
	"github.com/spencer-p/surfdash/pkg/noaa"
	"github.com/spencer-p/surfdash/pkg/openmeteo"
)

// DefaultSources returns the public NOAA upstreams, each behind its own
// circuit breaker.
func DefaultSources(timeout time.Duration) Sources {
	client := func(name string) *fetch.Client {
		return fetch.New(fetch.Config{Name: name, Timeout: timeout})
	}
	meteo := openmeteo.NewClient(client("open-meteo"))
	buoys := ndbc.NewClient(client("ndbc"))
	return Sources{
		Waves:        meteo,
		Tides:        noaa.NewClient(client("noaa-coops")),
		Wind:         meteo,
		WaterTemp:    buoys,
		ObservedWind: buoys,
	}
}
