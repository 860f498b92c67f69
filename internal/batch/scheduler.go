package batch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"shoprank/internal/ranking"
)

// Cron expressions use six fields (seconds first) and fire in KST.
const (
	HourlyRankingSchedule   = "0 */30 * * * *"      // every 30 minutes
	TodayRollupSchedule     = "0 0 1,7,13,19 * * *" // four times a day
	YesterdayRollupSchedule = "0 0 4 * * *"         // once yesterday's hours settle
	DailyRankingSchedule    = "0 0 1,13 * * *"
	WeeklyRankingSchedule   = "0 0 2 * * *"
	MonthlyRankingSchedule  = "0 0 2 * * *"
)

// Scheduler drives the pipeline jobs on their cron schedules. A fire that
// overlaps a still-running execution of the same job is skipped and
// logged, never queued.
type Scheduler struct {
	cron     *cron.Cron
	launcher *Launcher
}

func NewScheduler(launcher *Launcher) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(ranking.KST())),
		launcher: launcher,
	}
}

// Register schedules a job. Params are built at fire time: base date is
// the current KST date, base datetime the fire instant.
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		now := time.Now()
		_, err := s.launcher.Run(context.Background(), job, ParamsFor(now, now))
		if errors.Is(err, ErrJobAlreadyRunning) {
			log.Printf("[scheduler] %s still running, skipping this fire", job.Name())
			return
		}
		// Run already logged failures; nothing more to do here.
	})
	return err
}

// RegisterAll wires the full pipeline onto its production schedules.
func (s *Scheduler) RegisterAll(jobs *JobSet) error {
	for _, reg := range []struct {
		spec string
		job  Job
	}{
		{HourlyRankingSchedule, jobs.Hourly},
		{TodayRollupSchedule, jobs.TodayRollup},
		{YesterdayRollupSchedule, jobs.YesterdayRollup},
		{DailyRankingSchedule, jobs.Daily},
		{WeeklyRankingSchedule, jobs.Weekly},
		{MonthlyRankingSchedule, jobs.Monthly},
	} {
		if err := s.Register(reg.spec, reg.job); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[scheduler] started with %d entries", len(s.cron.Entries()))
}

// Stop halts scheduling and returns a context that is done once in-flight
// fires have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
