package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDailySchedule(t *testing.T) {
	cases := []struct {
		name     string
		schedule string
		hour     int
		minute   int
	}{
		{"default daily", "0 3 * * *", 3, 0},
		{"custom time", "30 14 * * *", 14, 30},
		{"midnight", "0 0 * * *", 0, 0},
		{"empty falls back", "", 3, 0},
		{"wrong field count falls back", "0 3 * *", 3, 0},
		{"day restriction falls back", "0 3 * * 1", 3, 0},
		{"day-of-month restriction falls back", "0 3 1 * *", 3, 0},
		{"step expression falls back", "*/5 * * * *", 3, 0},
		{"hour out of range falls back", "0 24 * * *", 3, 0},
		{"minute out of range falls back", "60 3 * * *", 3, 0},
		{"garbage falls back", "not a cron", 3, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, m := parseDailySchedule(tc.schedule)
			assert.Equal(t, tc.hour, h)
			assert.Equal(t, tc.minute, m)
		})
	}
}

func TestSettlementDue(t *testing.T) {
	loc := time.UTC
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 8, 28, hour, minute, 0, 0, loc)
	}

	t.Run("not due before trigger time", func(t *testing.T) {
		assert.False(t, settlementDue(at(2, 59), nil, 3, 0, loc))
	})

	t.Run("due exactly at trigger time", func(t *testing.T) {
		assert.True(t, settlementDue(at(3, 0), nil, 3, 0, loc))
	})

	t.Run("due when never ran", func(t *testing.T) {
		assert.True(t, settlementDue(at(9, 0), nil, 3, 0, loc))
	})

	t.Run("not due again after today's run", func(t *testing.T) {
		last := at(3, 1)
		assert.False(t, settlementDue(at(9, 0), &last, 3, 0, loc))
	})

	t.Run("due when last run was before today's trigger", func(t *testing.T) {
		last := time.Date(2026, 8, 27, 3, 1, 0, 0, loc)
		assert.True(t, settlementDue(at(3, 5), &last, 3, 0, loc))
	})

	t.Run("missed window still fires later the same day", func(t *testing.T) {
		last := time.Date(2026, 8, 27, 3, 1, 0, 0, loc)
		assert.True(t, settlementDue(at(23, 50), &last, 3, 0, loc))
	})

	t.Run("trigger compared in operating timezone", func(t *testing.T) {
		santo := time.FixedZone("AST", -4*60*60)
		// 06:30 UTC is 02:30 local, before the 03:00 local trigger.
		now := time.Date(2026, 8, 28, 6, 30, 0, 0, time.UTC)
		assert.False(t, settlementDue(now, nil, 3, 0, santo))
		// 07:30 UTC is 03:30 local.
		assert.True(t, settlementDue(now.Add(time.Hour), nil, 3, 0, santo))
	})
}
