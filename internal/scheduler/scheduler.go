package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
	"github.com/farmsight/farmsight/internal/store"
)

// Scheduler periodically refreshes the snapshot for the profile's location,
// so dashboard reads stay warm without a client-triggered fetch.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *advisory.Service
	profiles  *store.ProfileStore
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(service *advisory.Service, profiles *store.ProfileStore, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		profiles:  profiles,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// A zero interval disables the scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("snapshot refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		profile := s.profiles.Get()
		if !profile.HasLocation() {
			s.logger.Debug("refresh skipped, profile has no location yet")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := s.service.FetchAndSnapshot(ctx, profile); err != nil {
			s.logger.Error("scheduled snapshot refresh failed",
				zap.String("place", profile.Location.Place),
				zap.Error(err))
			return
		}
		s.logger.Info("scheduled snapshot refresh completed",
			zap.String("place", profile.Location.Place))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
