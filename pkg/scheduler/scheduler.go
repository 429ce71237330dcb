// Package scheduler republishes surf reports on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/report"
	"github.com/spencer-p/surfdash/pkg/spots"
)

// Updater refreshes the report of one spot.
type Updater interface {
	Update(ctx context.Context, spot spots.Spot) (report.Update, error)
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	updater   Updater
	spots     []spots.Spot
	interval  time.Duration
	timeout   time.Duration
}

// New returns a scheduler that updates every spot each interval, giving each
// run up to timeout.
func New(updater Updater, all []spots.Spot, interval, timeout time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		updater:   updater,
		spots:     all,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start runs the first update immediately and then every interval.
func (s *Scheduler) Start() error {
	if len(s.spots) == 0 {
		logger.Infof("scheduler: no spots configured; nothing to schedule")
		return nil
	}
	if _, err := s.scheduler.Every(s.interval).Do(func() {
		s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// RunOnce updates every spot concurrently and returns each spot's update in
// the order the spots were given.
func (s *Scheduler) RunOnce(ctx context.Context) []report.Update {
	logger.Infof("scheduler: updating %d reports", len(s.spots))
	updates := make([]report.Update, len(s.spots))

	var wg sync.WaitGroup
	for i, spot := range s.spots {
		wg.Add(1)
		go func(i int, spot spots.Spot) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			u, err := s.updater.Update(ctx, spot)
			if err != nil {
				logger.Errorf("scheduler: update failed for %s: %v", spot.Name, err)
			}
			updates[i] = u
		}(i, spot)
	}
	wg.Wait()
	logger.Infof("scheduler: completed report updates")
	return updates
}

// Stop cancels future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
