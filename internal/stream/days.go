package stream

import (
	"fmt"
	"time"
)

// SplitDays lists the UTC days from from to to, inclusive.
func SplitDays(from, to time.Time) ([]time.Time, error) {
	start := truncateDay(from)
	end := truncateDay(to)
	if end.Before(start) {
		return nil, fmt.Errorf("end date must be >= start date")
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
