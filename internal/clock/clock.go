package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time so batch jobs can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)

// BusinessDate returns the calendar day for t in the operating timezone,
// normalized to midnight UTC so it compares and stores as a plain date.
func BusinessDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month in the operating timezone.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
}
