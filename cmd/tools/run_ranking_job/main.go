package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"shoprank/internal/batch"
	"shoprank/internal/ranking"
	"shoprank/internal/rankstore"
	"shoprank/internal/repository"
)

func main() {
	var (
		jobName      string
		baseDate     string
		baseDateTime string
	)

	flag.StringVar(&jobName, "job", "", "job to run: hourlyRankingJob, todayMetricsRollupJob, yesterdayMetricsRollupJob, dailyRankingJob, weeklyRankingJob, monthlyRankingJob")
	flag.StringVar(&baseDate, "base-date", "", "base date as yyyyMMdd (default today KST)")
	flag.StringVar(&baseDateTime, "base-datetime", "", "base instant as yyyyMMddHH in KST, for hourlyRankingJob (default now)")
	flag.Parse()

	if jobName == "" {
		log.Fatal("-job is required")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = os.Getenv("DB_URL")
	}
	if databaseURL == "" {
		log.Fatal("DATABASE_URL or DB_URL is required")
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	repo, err := repository.NewRepository(databaseURL)
	if err != nil {
		log.Fatalf("failed to connect repository: %v", err)
	}
	defer repo.Close()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	jobs := batch.NewJobSet(repo, rankstore.New(rdb))
	job, err := jobs.ByName(jobName)
	if err != nil {
		log.Fatalf("[run_ranking_job] %v", err)
	}

	now := time.Now()
	date, err := batch.ParseBaseDate(baseDate, now)
	if err != nil {
		log.Fatalf("[run_ranking_job] invalid -base-date %q: %v", baseDate, err)
	}
	params := batch.ParamsFor(date, now)
	if baseDateTime != "" {
		t, err := time.ParseInLocation("2006010215", baseDateTime, ranking.KST())
		if err != nil {
			log.Fatalf("[run_ranking_job] invalid -base-datetime %q: %v", baseDateTime, err)
		}
		params.BaseDateTime = t
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec, err := batch.NewLauncher().Run(ctx, job, params)
	if err != nil {
		log.Fatalf("[run_ranking_job] %s failed: %v", jobName, err)
	}
	log.Printf("[run_ranking_job] %s %s in %s, read=%d written=%d",
		exec.JobName, exec.Status, exec.EndTime.Sub(exec.StartTime).Truncate(time.Millisecond), exec.ReadCount, exec.WriteCount)
}
