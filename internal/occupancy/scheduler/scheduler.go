// Package scheduler drives the nightly reset. A cron job polls once a
// minute and asks the service whether the reset should fire; the
// service's calendar-date marker keeps the reset idempotent, so an
// extra poll or a restart within the reset hour cannot double-fire.
package scheduler

import (
	"context"
	"time"

	"campushub/internal/occupancy/service"
	"campushub/pkg/logger"

	"github.com/robfig/cron/v3"
)

const pollSchedule = "* * * * *"

type Scheduler struct {
	cron    *cron.Cron
	service service.OccupancyService
	log     *logger.Logger
	timeout time.Duration
}

func New(occupancyService service.OccupancyService, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: occupancyService,
		log:     log,
		timeout: 30 * time.Second,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(pollSchedule, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("Nightly reset scheduler started", "schedule", pollSchedule)
	return nil
}

// Stop halts the cron loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Nightly reset scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	fired, err := s.service.NightlyReset(ctx, time.Now())
	if err != nil {
		s.log.Error("Nightly reset poll failed", "error", err)
		return
	}
	if fired {
		s.log.Info("Nightly reset executed")
	}
}
