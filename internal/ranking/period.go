package ranking

import (
	"fmt"
	"strings"
	"time"
)

// Period is a ranking horizon. Hourly and daily rankings live in Redis
// sorted sets; weekly and monthly rankings live in materialized tables.
type Period string

const (
	PeriodHourly  Period = "HOURLY"
	PeriodDaily   Period = "DAILY"
	PeriodWeekly  Period = "WEEKLY"
	PeriodMonthly Period = "MONTHLY"
)

// ParsePeriod parses case-insensitively. Unknown values fall back to HOURLY
// to keep the legacy read API lenient.
func ParsePeriod(s string) Period {
	p, err := ParsePeriodStrict(s)
	if err != nil {
		return PeriodHourly
	}
	return p
}

// ParsePeriodStrict parses case-insensitively and rejects unknown values.
// The materialized-table and admin paths must not default.
func ParsePeriodStrict(s string) (Period, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HOURLY":
		return PeriodHourly, nil
	case "DAILY":
		return PeriodDaily, nil
	case "WEEKLY":
		return PeriodWeekly, nil
	case "MONTHLY":
		return PeriodMonthly, nil
	default:
		return "", fmt.Errorf("unknown period: %q", s)
	}
}

// SubtractOne shifts an instant back by one period unit.
func (p Period) SubtractOne(t time.Time) time.Time {
	switch p {
	case PeriodHourly:
		return t.Add(-time.Hour)
	case PeriodDaily:
		return t.AddDate(0, 0, -1)
	case PeriodWeekly:
		return t.AddDate(0, 0, -7)
	default: // PeriodMonthly
		return t.AddDate(0, 0, -30)
	}
}

// Live reports whether the period is served from the in-memory store.
func (p Period) Live() bool {
	return p == PeriodHourly || p == PeriodDaily
}

func (p Period) String() string {
	return string(p)
}
