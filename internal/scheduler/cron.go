package scheduler

import (
	"strconv"
	"strings"
	"time"
)

const (
	defaultTriggerHour   = 3
	defaultTriggerMinute = 0
)

// parseDailySchedule understands the minute and hour fields of a cron
// string ("M H * * *"). Anything beyond a fixed daily time (ranges,
// steps, day-of-week restrictions) falls back to the default trigger.
func parseDailySchedule(schedule string) (hour, minute int) {
	fields := strings.Fields(schedule)
	if len(fields) != 5 {
		return defaultTriggerHour, defaultTriggerMinute
	}
	for _, rest := range fields[2:] {
		if rest != "*" {
			return defaultTriggerHour, defaultTriggerMinute
		}
	}
	m, err := strconv.Atoi(fields[0])
	if err != nil || m < 0 || m > 59 {
		return defaultTriggerHour, defaultTriggerMinute
	}
	h, err := strconv.Atoi(fields[1])
	if err != nil || h < 0 || h > 23 {
		return defaultTriggerHour, defaultTriggerMinute
	}
	return h, m
}

// settlementDue reports whether the daily trigger time has passed and no
// run has happened since.
func settlementDue(now time.Time, lastRunAt *time.Time, hour, minute int, loc *time.Location) bool {
	local := now.In(loc)
	trigger := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if local.Before(trigger) {
		return false
	}
	return lastRunAt == nil || lastRunAt.Before(trigger)
}
