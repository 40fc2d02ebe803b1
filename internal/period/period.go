// Package period computes the boundaries of the retention tiers used by the
// rotation engine. Boundaries are either aligned to calendar marks (midnight,
// Monday, the first of a month) or slide back from an instant by exactly one
// tier length.
package period

import (
	"fmt"
	"iter"
	"time"
)

// Tier is a retention granularity.
type Tier int

const (
	QuarterHourly Tier = iota
	Hourly
	Daily
	Weekly
	Monthly
	QuarterYearly
	Yearly
)

// Count is the number of tiers.
const Count = int(Yearly) + 1

// Tiers lists every tier from finest to coarsest. This is also the order in
// which tiers claim snapshots during a rotation.
var Tiers = [Count]Tier{QuarterHourly, Hourly, Daily, Weekly, Monthly, QuarterYearly, Yearly}

// ConfigKey returns the name under which the tier's retention count is
// configured.
func (t Tier) ConfigKey() string {
	switch t {
	case QuarterHourly:
		return "quarter_hourly"
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case QuarterYearly:
		return "quarter_yearly"
	case Yearly:
		return "yearly"
	}
	panic(fmt.Sprintf("period: unknown tier %d", int(t)))
}

func (t Tier) String() string {
	return t.ConfigKey()
}

// ParseTier maps a config key back to its tier.
func ParseTier(key string) (Tier, error) {
	for _, t := range Tiers {
		if t.ConfigKey() == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown period %q", key)
}

// StartOfPeriod returns the start of the calendar period that contains the
// instant one second before t. An instant lying exactly on a boundary
// therefore belongs to the period that ends there, not the one it opens.
// Calendar fields are evaluated in t's location.
func StartOfPeriod(tier Tier, t time.Time) time.Time {
	prev := t.Add(-time.Second)
	y, m, d := prev.Date()
	loc := prev.Location()

	switch tier {
	case QuarterHourly:
		return prev.Add(-intoHour(prev) + time.Duration(prev.Minute()/15*15)*time.Minute)
	case Hourly:
		return prev.Add(-intoHour(prev))
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case Weekly:
		// Weekday counts from Sunday; weeks start on Monday.
		back := (int(prev.Weekday()) + 6) % 7
		return time.Date(y, m, d-back, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case QuarterYearly:
		return time.Date(y, (m-1)/3*3+1, 1, 0, 0, 0, 0, loc)
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	}
	panic(fmt.Sprintf("period: unknown tier %d", int(tier)))
}

// PreviousPeriod returns the start of the period preceding t.
//
// Calendar aligned, this is the start of the period containing the instant
// just before t, so stepping repeatedly walks calendar boundaries:
// 2024-01-31 → 2024-01-01 → 2023-12-01. Sliding, it is t minus one tier
// length; months, quarters and years clamp the day of month to the last day
// of the target month (2024-03-31 → 2024-02-29, 2023-03-31 → 2023-02-28).
func PreviousPeriod(tier Tier, t time.Time, sliding bool) time.Time {
	if !sliding {
		return StartOfPeriod(tier, t)
	}

	switch tier {
	case QuarterHourly:
		return t.Add(-15 * time.Minute)
	case Hourly:
		return t.Add(-time.Hour)
	case Daily:
		return t.Add(-24 * time.Hour)
	case Weekly:
		return t.Add(-7 * 24 * time.Hour)
	case Monthly:
		return addMonths(t, -1)
	case QuarterYearly:
		return addMonths(t, -3)
	case Yearly:
		return addMonths(t, -12)
	}
	panic(fmt.Sprintf("period: unknown tier %d", int(tier)))
}

// PreviousPeriods yields count period starts, each produced by applying
// PreviousPeriod to the one before it, beginning at start.
func PreviousPeriods(tier Tier, start time.Time, count int, sliding bool) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		t := start
		for range count {
			t = PreviousPeriod(tier, t, sliding)
			if !yield(t) {
				return
			}
		}
	}
}

// intoHour is the time elapsed since the last full hour on t's wall clock.
func intoHour(t time.Time) time.Duration {
	return time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	ty, tm, _ := target.Date()
	if last := daysIn(ty, tm); d > last {
		d = last
	}

	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
