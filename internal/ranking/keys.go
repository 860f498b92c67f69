package ranking

import (
	"fmt"
	"time"
)

// All bucket keys and cron schedules are evaluated in KST.
var kst = loadKST()

func loadKST() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		// KST has no DST; a fixed offset is an exact substitute when the
		// tz database is missing from the host image.
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// KST returns the Asia/Seoul location.
func KST() *time.Location {
	return kst
}

const (
	hourlyKeyPrefix = "ranking:products:hourly:"
	dailyKeyPrefix  = "ranking:products:daily:"

	// StagingSuffix marks the temporary key a ranking job populates before
	// the atomic rename over the live key.
	StagingSuffix = ":staging"
)

// HourlyKey names the live hourly sorted set for the hour containing t.
func HourlyKey(t time.Time) string {
	return hourlyKeyPrefix + t.In(kst).Format("2006010215")
}

// DailyKey names the live daily sorted set for the KST date of t.
func DailyKey(t time.Time) string {
	return dailyKeyPrefix + t.In(kst).Format("20060102")
}

// StagingKey derives the staging variant of a live key.
func StagingKey(liveKey string) string {
	return liveKey + StagingSuffix
}

// CurrentBucketKey names the live key for "now" in KST. Only the Redis-backed
// periods have bucket keys.
func CurrentBucketKey(p Period, now time.Time) (string, error) {
	switch p {
	case PeriodHourly:
		return HourlyKey(now), nil
	case PeriodDaily:
		return DailyKey(now), nil
	default:
		return "", fmt.Errorf("period %s has no live bucket key", p)
	}
}

// KSTDate truncates t to midnight of its KST calendar date.
func KSTDate(t time.Time) time.Time {
	y, m, d := t.In(kst).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, kst)
}

// KSTDayWindow returns the half-open instant window [start, end) covering
// the KST calendar date of t.
func KSTDayWindow(t time.Time) (time.Time, time.Time) {
	start := KSTDate(t)
	return start, start.AddDate(0, 0, 1)
}

// SameDate reports whether two instants fall on the same KST calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.In(kst).Date()
	by, bm, bd := b.In(kst).Date()
	return ay == by && am == bm && ad == bd
}
