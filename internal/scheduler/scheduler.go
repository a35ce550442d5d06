package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timer"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// Scheduler drives periodic scenario recomputation: once at each
// configured reforecast time of day (UTC) and on a fixed refresh
// interval in between. Every firing reschedules itself, so a failed or
// skipped run never stops the cadence.
type Scheduler struct {
	timers *timer.Manager
	cfg    config.SchedulerConfig
	update func()
}

// New creates a scheduler. The update callback is expected to be
// single-flight safe (a busy engine skips the run).
func New(timers *timer.Manager, cfg config.SchedulerConfig, update func()) *Scheduler {
	return &Scheduler{timers: timers, cfg: cfg, update: update}
}

// Start schedules all recurring tasks. The timer manager must already
// be started.
func (s *Scheduler) Start() error {
	for _, timeOfDay := range s.cfg.ReforecastTimes {
		if err := s.scheduleDaily(timeOfDay); err != nil {
			return err
		}
		log.Printf("Scheduled reforecast update at %s UTC", timeOfDay)
	}
	if s.cfg.RefreshInterval > 0 {
		s.scheduleInterval()
		log.Printf("Scheduled refresh every %s", s.cfg.RefreshInterval)
	}
	return nil
}

// Stop cancels the recurring tasks.
func (s *Scheduler) Stop() {
	for _, timeOfDay := range s.cfg.ReforecastTimes {
		s.timers.Cancel("reforecast-" + timeOfDay)
	}
	s.timers.Cancel("refresh-interval")
}

// TriggerNow runs the update callback immediately, sharing the guarded
// path the timers use.
func (s *Scheduler) TriggerNow() {
	s.runGuarded()
}

func (s *Scheduler) scheduleDaily(timeOfDay string) error {
	taskID := "reforecast-" + timeOfDay

	nextRun, err := NextDailyRun(time.Now().UTC(), timeOfDay)
	if err != nil {
		return err
	}

	callback := func() {
		log.Printf("Running scheduled reforecast update (%s UTC)", timeOfDay)
		s.runGuarded()
		if err := s.scheduleDaily(timeOfDay); err != nil {
			log.Printf("ERROR rescheduling reforecast at %s: %v", timeOfDay, err)
		}
	}

	return s.timers.Schedule(taskID, nextRun, callback)
}

func (s *Scheduler) scheduleInterval() {
	callback := func() {
		log.Printf("Running interval refresh")
		s.runGuarded()
		s.scheduleInterval()
	}
	if err := s.timers.Schedule("refresh-interval", time.Now().Add(s.cfg.RefreshInterval), callback); err != nil {
		log.Printf("ERROR scheduling interval refresh: %v", err)
	}
}

// runGuarded shields the timer loop from anything the update does.
func (s *Scheduler) runGuarded() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR scheduled update panicked: %v", r)
		}
	}()
	s.update()
}

// NextDailyRun returns the next occurrence of an "HH:MM" time of day
// strictly after now, in UTC.
func NextDailyRun(now time.Time, timeOfDay string) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeOfDay)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time of day out of range: %s", timeOfDay)
	}

	now = now.UTC()
	todayRun := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)

	// If we're at or past today's run time, schedule for tomorrow
	if !now.Before(todayRun) {
		return todayRun.AddDate(0, 0, 1), nil
	}
	return todayRun, nil
}
