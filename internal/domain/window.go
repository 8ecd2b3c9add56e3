package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	// Day is the fixed length used for window arithmetic.
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Unbounded is a window end no stored timestamp reaches.
var Unbounded = time.UnixMilli(1 << 53)

// Period selects the aggregation window.
type Period string

const (
	PeriodToday    Period = "today"
	PeriodThisWeek Period = "this_week"
)

// ParsePeriod accepts "today" and "this_week" (also "week"); empty means today.
func ParsePeriod(value string) (Period, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "today":
		return PeriodToday, true
	case "this_week", "week":
		return PeriodThisWeek, true
	}
	return "", false
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains includes Start and excludes End.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow is [StartOfDay(t), StartOfDay(t)+24h).
func DayWindow(t time.Time) Window {
	start := StartOfDay(t)
	return Window{Start: start, End: start.Add(Day)}
}

// WindowFor resolves a period against the current wall-clock time.
func WindowFor(p Period, now time.Time) Window {
	today := DayWindow(now)
	if p == PeriodThisWeek {
		return Window{Start: today.End.Add(-Week), End: today.End}
	}
	return today
}

// DayBucket holds the items that fall on one calendar day.
type DayBucket[T any] struct {
	Day   time.Time
	Items []T
}

// BucketByDay groups items by the local calendar day of their timestamp,
// newest day first. Item order within a bucket is preserved.
func BucketByDay[T any](items []T, timestamp func(T) time.Time) []DayBucket[T] {
	index := make(map[time.Time]int)
	buckets := make([]DayBucket[T], 0)
	for _, item := range items {
		day := StartOfDay(timestamp(item))
		i, ok := index[day]
		if !ok {
			i = len(buckets)
			index[day] = i
			buckets = append(buckets, DayBucket[T]{Day: day})
		}
		buckets[i].Items = append(buckets[i].Items, item)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Day.After(buckets[j].Day)
	})
	return buckets
}
