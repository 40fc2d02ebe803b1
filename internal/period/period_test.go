package period

import (
	"slices"
	"testing"
	"time"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestPreviousPeriods(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		tier    Tier
		sliding bool
		want    []time.Time
	}{
		{
			name:  "quarter hourly across midnight",
			start: at(2024, 3, 1, 0, 20),
			tier:  QuarterHourly,
			want:  []time.Time{at(2024, 3, 1, 0, 15), at(2024, 3, 1, 0, 0), at(2024, 2, 29, 23, 45)},
		},
		{
			name:  "hourly with zero count",
			start: at(2024, 3, 1, 1, 20),
			tier:  Hourly,
		},
		{
			name:  "hourly",
			start: at(2024, 3, 1, 1, 20),
			tier:  Hourly,
			want:  []time.Time{at(2024, 3, 1, 1, 0), at(2024, 3, 1, 0, 0), at(2024, 2, 29, 23, 0)},
		},
		{
			name:  "daily over leap day",
			start: at(2024, 3, 1, 2, 20),
			tier:  Daily,
			want:  []time.Time{at(2024, 3, 1, 0, 0), at(2024, 2, 29, 0, 0), at(2024, 2, 28, 0, 0)},
		},
		{
			name:  "weekly starts on monday",
			start: at(2024, 3, 1, 2, 20),
			tier:  Weekly,
			want:  []time.Time{at(2024, 2, 26, 0, 0), at(2024, 2, 19, 0, 0)},
		},
		{
			name:  "monthly",
			start: at(2024, 1, 31, 2, 20),
			tier:  Monthly,
			want:  []time.Time{at(2024, 1, 1, 0, 0), at(2023, 12, 1, 0, 0), at(2023, 11, 1, 0, 0)},
		},
		{
			name:  "quarter yearly",
			start: at(2024, 1, 31, 2, 20),
			tier:  QuarterYearly,
			want: []time.Time{
				at(2024, 1, 1, 0, 0), at(2023, 10, 1, 0, 0), at(2023, 7, 1, 0, 0),
				at(2023, 4, 1, 0, 0), at(2023, 1, 1, 0, 0),
			},
		},
		{
			name:  "yearly",
			start: at(2024, 2, 29, 2, 20),
			tier:  Yearly,
			want:  []time.Time{at(2024, 1, 1, 0, 0), at(2023, 1, 1, 0, 0), at(2022, 1, 1, 0, 0)},
		},
		{
			name:    "sliding quarter hourly",
			start:   at(2024, 3, 1, 0, 20),
			tier:    QuarterHourly,
			sliding: true,
			want:    []time.Time{at(2024, 3, 1, 0, 5), at(2024, 2, 29, 23, 50)},
		},
		{
			name:    "sliding hourly",
			start:   at(2024, 3, 1, 2, 20),
			tier:    Hourly,
			sliding: true,
			want:    []time.Time{at(2024, 3, 1, 1, 20), at(2024, 3, 1, 0, 20), at(2024, 2, 29, 23, 20)},
		},
		{
			name:    "sliding daily",
			start:   at(2024, 3, 1, 2, 20),
			tier:    Daily,
			sliding: true,
			want:    []time.Time{at(2024, 2, 29, 2, 20), at(2024, 2, 28, 2, 20), at(2024, 2, 27, 2, 20)},
		},
		{
			name:    "sliding weekly",
			start:   at(2024, 3, 1, 2, 20),
			tier:    Weekly,
			sliding: true,
			want:    []time.Time{at(2024, 2, 23, 2, 20), at(2024, 2, 16, 2, 20)},
		},
		{
			name:    "sliding monthly clamps and keeps clamping",
			start:   at(2024, 1, 31, 2, 20),
			tier:    Monthly,
			sliding: true,
			want:    []time.Time{at(2023, 12, 31, 2, 20), at(2023, 11, 30, 2, 20), at(2023, 10, 30, 2, 20)},
		},
		{
			name:    "sliding quarter yearly",
			start:   at(2024, 1, 31, 2, 20),
			tier:    QuarterYearly,
			sliding: true,
			want: []time.Time{
				at(2023, 10, 31, 2, 20), at(2023, 7, 31, 2, 20),
				at(2023, 4, 30, 2, 20), at(2023, 1, 30, 2, 20),
			},
		},
		{
			name:    "sliding yearly from leap day",
			start:   at(2024, 2, 29, 2, 20),
			tier:    Yearly,
			sliding: true,
			want:    []time.Time{at(2023, 2, 28, 2, 20), at(2022, 2, 28, 2, 20)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(PreviousPeriods(tt.tier, tt.start, len(tt.want), tt.sliding))

			if len(got) != len(tt.want) {
				t.Fatalf("got %d periods, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("period %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPreviousPeriodSlidingMonthClamp(t *testing.T) {
	tests := []struct {
		from time.Time
		want time.Time
	}{
		{at(2024, 3, 31, 12, 0), at(2024, 2, 29, 12, 0)},
		{at(2023, 3, 31, 12, 0), at(2023, 2, 28, 12, 0)},
		{at(2024, 1, 15, 12, 0), at(2023, 12, 15, 12, 0)},
	}

	for _, tt := range tests {
		if got := PreviousPeriod(Monthly, tt.from, true); !got.Equal(tt.want) {
			t.Errorf("PreviousPeriod(monthly, %s) = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestStartOfPeriodOnBoundary(t *testing.T) {
	// An instant exactly on a boundary belongs to the period ending there.
	tests := []struct {
		tier Tier
		t    time.Time
		want time.Time
	}{
		{QuarterHourly, at(2024, 3, 15, 0, 30), at(2024, 3, 15, 0, 15)},
		{Hourly, at(2024, 3, 15, 1, 0), at(2024, 3, 15, 0, 0)},
		{Daily, at(2024, 3, 15, 0, 0), at(2024, 3, 14, 0, 0)},
		{Weekly, at(2024, 3, 11, 0, 0), at(2024, 3, 4, 0, 0)},
		{Monthly, at(2024, 3, 1, 0, 0), at(2024, 2, 1, 0, 0)},
		{QuarterYearly, at(2024, 4, 1, 0, 0), at(2024, 1, 1, 0, 0)},
		{Yearly, at(2024, 1, 1, 0, 0), at(2023, 1, 1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			if got := StartOfPeriod(tt.tier, tt.t); !got.Equal(tt.want) {
				t.Errorf("StartOfPeriod(%s) = %s, want %s", tt.t, got, tt.want)
			}
			inside := tt.t.Add(time.Second)
			if got := StartOfPeriod(tt.tier, inside); !got.Equal(tt.t) {
				t.Errorf("StartOfPeriod(%s) = %s, want %s", inside, got, tt.t)
			}
		})
	}
}

func TestStartOfPeriodUsesLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	// 23:30 UTC on the 14th is already the 15th in Berlin.
	ref := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC).In(berlin)
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, berlin)

	if got := StartOfPeriod(Daily, ref); !got.Equal(want) {
		t.Errorf("StartOfPeriod(daily) = %s, want %s", got, want)
	}
}

func TestCalendarPeriodsStrictlyDecrease(t *testing.T) {
	for _, tier := range Tiers {
		prev := at(2024, 5, 17, 13, 37)
		for p := range PreviousPeriods(tier, prev, 40, false) {
			if !p.Before(prev) {
				t.Fatalf("%s: %s is not before %s", tier, p, prev)
			}
			if again := StartOfPeriod(tier, p.Add(time.Second)); !again.Equal(p) {
				t.Fatalf("%s: %s is not a period boundary", tier, p)
			}
			prev = p
		}
	}
}

func TestPreviousPeriodsStopsEarly(t *testing.T) {
	n := 0
	for range PreviousPeriods(Daily, at(2024, 3, 1, 0, 0), 10, false) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("iterated %d times, want 3", n)
	}
}

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, err := ParseTier(tier.ConfigKey())
		if err != nil {
			t.Fatalf("ParseTier(%q): %v", tier.ConfigKey(), err)
		}
		if got != tier {
			t.Errorf("ParseTier(%q) = %v, want %v", tier.ConfigKey(), got, tier)
		}
	}

	if _, err := ParseTier("fortnightly"); err == nil {
		t.Error("ParseTier(fortnightly) succeeded, want error")
	}
}
