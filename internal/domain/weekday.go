package domain

import (
	"sort"
	"time"
)

// WeekOrder is the canonical display order of weekdays
var WeekOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// NamedDay is a forecast day with its derived weekday
type NamedDay struct {
	DailyForecast
	DayName string
	Parsed  time.Time
	valid   bool
}

// NameDays derives weekday names from ISO dates. Dates are parsed as UTC
// calendar days so the weekday does not depend on the local zone.
func NameDays(days []DailyForecast) []NamedDay {
	named := make([]NamedDay, len(days))
	for i, d := range days {
		named[i] = NamedDay{DailyForecast: d}
		t, err := time.Parse(time.DateOnly, d.Date)
		if err != nil {
			continue
		}
		named[i].Parsed = t
		named[i].DayName = t.Weekday().String()
		named[i].valid = true
	}
	return named
}

// weekIndex returns the position in WeekOrder, -1 for days without a weekday
func weekIndex(d NamedDay) int {
	if !d.valid {
		return -1
	}
	for i, wd := range WeekOrder {
		if wd == d.Parsed.Weekday() {
			return i
		}
	}
	return -1
}

// SortByWeekday orders days Monday first by weekday identity only. Days
// sharing a weekday keep their input order.
func SortByWeekday(days []DailyForecast) []NamedDay {
	named := NameDays(days)
	sort.SliceStable(named, func(i, j int) bool {
		return weekIndex(named[i]) < weekIndex(named[j])
	})
	return named
}
