package batch

import (
	"fmt"

	"shoprank/internal/ranking"
	"shoprank/internal/repository"
	"shoprank/internal/rankstore"
)

// JobSet bundles every pipeline job wired to shared dependencies.
type JobSet struct {
	Hourly          *HourlyRankingJob
	TodayRollup     *MetricsRollupJob
	YesterdayRollup *MetricsRollupJob
	Daily           *DailyRankingJob
	Weekly          *PeriodRankingJob
	Monthly         *PeriodRankingJob
}

func NewJobSet(repo *repository.Repository, store *rankstore.Store) *JobSet {
	return &JobSet{
		Hourly:          NewHourlyRankingJob(repo, repo, store),
		TodayRollup:     NewTodayMetricsRollupJob(repo, repo),
		YesterdayRollup: NewYesterdayMetricsRollupJob(repo, repo),
		Daily:           NewDailyRankingJob(repo, repo, store),
		Weekly:          NewWeeklyRankingJob(repo, repo, repo),
		Monthly:         NewMonthlyRankingJob(repo, repo, repo),
	}
}

// ByName resolves a job for the manual runner and admin triggers.
func (s *JobSet) ByName(name string) (Job, error) {
	switch name {
	case s.Hourly.Name():
		return s.Hourly, nil
	case s.TodayRollup.Name():
		return s.TodayRollup, nil
	case s.YesterdayRollup.Name():
		return s.YesterdayRollup, nil
	case s.Daily.Name():
		return s.Daily, nil
	case s.Weekly.Name():
		return s.Weekly, nil
	case s.Monthly.Name():
		return s.Monthly, nil
	default:
		return nil, fmt.Errorf("unknown job: %q", name)
	}
}

// ForPeriod resolves the rebuild job for an admin-triggered period.
func (s *JobSet) ForPeriod(p ranking.Period) (Job, error) {
	switch p {
	case ranking.PeriodWeekly:
		return s.Weekly, nil
	case ranking.PeriodMonthly:
		return s.Monthly, nil
	default:
		return nil, fmt.Errorf("period %s has no admin rebuild job", p)
	}
}
