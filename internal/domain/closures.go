package domain

import (
	"fmt"
	"time"
)

// maxExplicitClosures is the number of one-off closure date slots on the
// survey (closure_date_1 .. closure_date_10).
const maxExplicitClosures = 10

// holidayClosedCode is the radio code meaning "closed this holiday". An
// empty value (never answered) is not a closure.
const holidayClosedCode = "0"

const isoDate = "2006-01-02"

// holidayFields maps each holiday survey field to its date resolver, in
// calendar order.
var holidayFields = []struct {
	field   string
	resolve func(year int) time.Time
}{
	{"memorial_day", MemorialDay},
	{"juneteenth", Juneteenth},
	{"independence_day", IndependenceDay},
	{"labor_day", LaborDay},
}

// ExplicitClosureDates collects the one-off closure dates entered on a row.
// prefix selects the preseason ("") or update ("temp_") variants.
func ExplicitClosureDates(rec RawRecord, prefix string) []string {
	var dates []string
	for i := 1; i <= maxExplicitClosures; i++ {
		if d := rec.Get(fmt.Sprintf("%sclosure_date_%d", prefix, i)); d != "" {
			dates = append(dates, d)
		}
	}
	return dates
}

// holidayClosureDates resolves the floating holidays the row explicitly
// marks closed, as ISO dates for the season year.
func holidayClosureDates(rec RawRecord, year int) []string {
	var dates []string
	for _, h := range holidayFields {
		if rec.Get(h.field) == holidayClosedCode {
			dates = append(dates, h.resolve(year).Format(isoDate))
		}
	}
	return dates
}
