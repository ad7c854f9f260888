package domain

import "time"

// Floating and fixed summer holidays observed by the registry. Each resolves
// to a concrete date for the given season year.

// MemorialDay returns the last Monday of May.
func MemorialDay(year int) time.Time {
	d := time.Date(year, time.May, 31, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Juneteenth returns June 19.
func Juneteenth(year int) time.Time {
	return time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC)
}

// IndependenceDay returns July 4.
func IndependenceDay(year int) time.Time {
	return time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)
}

// LaborDay returns the first Monday of September.
func LaborDay(year int) time.Time {
	d := time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
