package engine

import (
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a wall-clock time-of-day string into minutes since
// midnight. Accepted formats are 24-hour "HH:MM" and 12-hour "H:MM AM" /
// "H:MM PM" (case-insensitive, optional leading zero). Any other input
// returns ok=false; callers skip unparseable entries rather than failing.
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	meridiem := ""
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "AM"):
		meridiem = "AM"
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(upper, "PM"):
		meridiem = "PM"
		s = strings.TrimSpace(s[:len(s)-2])
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, false
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, false
	}
	if minute < 0 || minute > 59 {
		return 0, false
	}

	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return 0, false
		}
	default:
		if hour < 1 || hour > 12 {
			return 0, false
		}
		hour = hour % 12
		if meridiem == "PM" {
			hour += 12
		}
	}

	return hour*60 + minute, true
}

// MinutesOfDay returns t's time of day as minutes since midnight
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
