// Command report publishes the surf report of one spot, or prints it with
// -dry-run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/spencer-p/surfdash/pkg/cache"
	"github.com/spencer-p/surfdash/pkg/config"
	"github.com/spencer-p/surfdash/pkg/data"
	"github.com/spencer-p/surfdash/pkg/forecast"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/report"
	"github.com/spencer-p/surfdash/pkg/spots"
)

func main() {
	env, err := config.Load()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Init(env.LogLevel, env.LogFormat)

	spotName := flag.String("spot", env.DefaultSpot, "spot to report on")
	dryRun := flag.Bool("dry-run", false, "print the report instead of storing it")
	flag.Parse()

	zone, err := env.Zone()
	if err != nil {
		logger.Fatalf("Failed to load time zone: %v", err)
	}
	registry, err := spots.LoadFile(env.SpotsFile, zone)
	if err != nil {
		logger.Fatalf("Failed to load spots: %v", err)
	}
	spot, err := registry.Lookup(*spotName)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	store, closeCache, err := cache.Open(env.CachePath)
	if err != nil {
		logger.Fatalf("Failed to open cache: %v", err)
	}
	defer closeCache()
	service := forecast.New(forecast.DefaultSources(env.FetchTimeout), store, forecast.Config{
		FetchTimeout: env.FetchTimeout,
		Horizon:      env.Horizon(),
		BackupBuoys:  env.BackupBuoys,
	})

	ctx := context.Background()
	if *dryRun {
		r, err := report.NewBuilder(service, nil).Build(ctx, spot)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			logger.Fatalf("%v", err)
		}

		var verr *report.ValidationError
		if err := report.Validate(r); errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Fprintf(os.Stderr, "would not publish: %s\n", p)
			}
			os.Exit(1)
		}
		return
	}

	db, err := data.Open(data.DSN(env.DatabaseURL))
	if err != nil {
		logger.Fatalf("%v", err)
	}
	u, err := report.NewBuilder(service, data.NewReportStore(db)).Update(ctx, spot)
	json.NewEncoder(os.Stdout).Encode(u)
	if err != nil {
		os.Exit(1)
	}
}
