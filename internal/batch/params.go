package batch

import (
	"errors"
	"strings"
	"time"

	"shoprank/internal/ranking"
)

// ErrInvalidDateFormat marks a base date that is not yyyyMMdd.
var ErrInvalidDateFormat = errors.New("base date must be yyyyMMdd")

const baseDateLayout = "20060102"

// ParseBaseDate parses a yyyyMMdd base date in KST. A blank value means
// today; a future date is clamped to today so a mistyped admin trigger
// cannot rank a day with no data.
func ParseBaseDate(s string, now time.Time) (time.Time, error) {
	today := ranking.KSTDate(now)
	s = strings.TrimSpace(s)
	if s == "" {
		return today, nil
	}
	d, err := time.ParseInLocation(baseDateLayout, s, ranking.KST())
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	if d.After(today) {
		return today, nil
	}
	return d, nil
}

// ParamsFor builds execution params for a launch at now against baseDate.
func ParamsFor(baseDate, now time.Time) Params {
	return Params{
		BaseDate:     ranking.KSTDate(baseDate),
		BaseDateTime: now,
		Timestamp:    now,
	}
}
