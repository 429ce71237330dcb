// Command hourly prints a spot's predicted tide height at a fixed step,
// interpolated between NOAA's highs and lows.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/spencer-p/surfdash/pkg/config"
	"github.com/spencer-p/surfdash/pkg/fetch"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/noaa"
	"github.com/spencer-p/surfdash/pkg/noaa/splines"
	"github.com/spencer-p/surfdash/pkg/spots"
	"github.com/spencer-p/surfdash/pkg/timetricks"
)

func main() {
	env, err := config.Load()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	spotName := flag.String("spot", env.DefaultSpot, "spot whose tide station to use")
	dur := flag.Duration("duration", 14*24*time.Hour, "how far ahead to print")
	step := flag.Duration("step", 2*time.Hour, "time between printed heights")
	flag.Parse()

	zone, err := env.Zone()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	registry, err := spots.LoadFile(env.SpotsFile, zone)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	spot, err := registry.Lookup(*spotName)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	client := noaa.NewClient(fetch.New(fetch.Config{Name: "noaa-coops", Timeout: env.FetchTimeout}))
	// Pad a day each side so the curve covers the whole range.
	now := time.Now()
	tides, err := client.FetchTides(context.Background(), spot.TideStation, now.Add(-24*time.Hour), now.Add(*dur+24*time.Hour))
	if err != nil {
		fmt.Printf("failed to fetch from NOAA: %v\n", err)
		return
	}

	spl := splines.CurvesBetween(tides)
	for t := now; t.Before(now.Add(*dur)); t = t.Add(*step) {
		local := t.In(spot.Zone())
		fmt.Printf("%s %s %.2f\n", timetricks.DayKey(local, spot.Zone()), timetricks.Clock(local), spl.Eval(t))
	}
}
