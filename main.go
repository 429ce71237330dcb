package main

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/spencer-p/surfdash/pkg/cache"
	"github.com/spencer-p/surfdash/pkg/config"
	"github.com/spencer-p/surfdash/pkg/data"
	"github.com/spencer-p/surfdash/pkg/forecast"
	"github.com/spencer-p/surfdash/pkg/handlers"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/metrics"
	"github.com/spencer-p/surfdash/pkg/report"
	"github.com/spencer-p/surfdash/pkg/scheduler"
	"github.com/spencer-p/surfdash/pkg/spots"
)

//go:embed static/*.template.html
var content embed.FS

func main() {
	env, err := config.Load()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Init(env.LogLevel, env.LogFormat)

	zone, err := env.Zone()
	if err != nil {
		logger.Fatalf("Failed to load time zone: %v", err)
	}
	registry, err := spots.LoadFile(env.SpotsFile, zone)
	if err != nil {
		logger.Fatalf("Failed to load spots: %v", err)
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

	var reports handlers.ReportReader
	if env.Reports() {
		db, err := data.Open(data.DSN(env.DatabaseURL))
		if err != nil {
			logger.Fatalf("%v", err)
		}
		reportStore := data.NewReportStore(db)
		reports = reportStore
		builder := report.NewBuilder(service, reportStore)
		sched := scheduler.New(builder, registry.All(), env.ReportInterval, 2*env.FetchTimeout)
		if err := sched.Start(); err != nil {
			logger.Fatalf("Failed to schedule reports: %v", err)
		}
		defer sched.Stop()
		logger.Infof("Publishing reports every %s", env.ReportInterval)
	}

	server, err := handlers.New(registry, service, content, handlers.Options{
		Prefix:        env.Prefix,
		DefaultSpot:   env.DefaultSpot,
		DataDir:       env.KoDataPath,
		SessionKey:    env.SessionKey,
		EncryptionKey: env.EncryptionKey,
		RateLimit:     rate.Limit(env.RateLimit),
		RateBurst:     env.RateBurst,
		TrustProxy:    env.TrustProxy,
		Reports:       reports,
	})
	if err != nil {
		logger.Fatalf("Failed to build handlers: %v", err)
	}

	r := mux.NewRouter().StrictSlash(true)
	r.Use(metrics.LatencyHandler)
	r.Handle("/metrics", promhttp.Handler())
	s := r.PathPrefix(env.Prefix).Subrouter()
	server.Register(s)

	srv := &http.Server{
		Handler:      r,
		Addr:         "0.0.0.0:" + env.Port,
		WriteTimeout: 3 * env.FetchTimeout,
		ReadTimeout:  15 * time.Second,
	}

	go func() {
		logger.Infof("Listening and serving on %s%s", srv.Addr, env.Prefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown: %v", err)
	}
}
