package github

import (
	"fmt"
	"time"
)

// TimeAgo renders how long ago t was relative to now using coarse calendar
// buckets: days under a month, months under a year, years beyond that.
// Singular units are used at exactly one ("1 day ago", "1 month ago").
func TimeAgo(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		days = 0
	}

	switch {
	case days < 30:
		return pluralAgo(days, "day")
	case days < 365:
		return pluralAgo(days/30, "month")
	default:
		return pluralAgo(days/365, "year")
	}
}

func pluralAgo(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
