package domain

import (
	"fmt"
	"strings"
	"time"
)

// weekdayNames indexes Monday=0 through Sunday=6, matching the 1-indexed
// days_open checkbox codes.
var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// dayFieldKeys are the per-day field name stems used by the survey
// (mon_start/mon_close etc.).
var dayFieldKeys = [7]string{"mon", "tues", "wed", "thurs", "fri", "sat", "sun"}

// BuildSchedule assembles the weekly schedule from a raw row. prefix selects
// the preseason ("") or in-season update ("temp_") field variants.
//
// When same_hours_everyday is set, one start/close pair applies to every
// open day and closed days stay empty. Otherwise the seven independent
// per-day pairs are read and only days with both a start and a close are
// populated. Per-day hours keep the raw 24-hour form; FullSchedule renders
// the 12-hour display summary.
func BuildSchedule(rec RawRecord, prefix string) WeeklySchedule {
	var s WeeklySchedule
	var open [7]bool
	var openNames []string

	for i := range open {
		open[i] = rec.Get(fmt.Sprintf("%sdays_open___%d", prefix, i+1)) == "1"
		if open[i] {
			openNames = append(openNames, weekdayNames[i])
		}
	}
	s.DaysOpen = strings.Join(openNames, ", ")
	s.SameHoursEveryday = rec.Get(prefix+"same_hours_everyday") == "1"

	if s.SameHoursEveryday {
		s.OpeningTime = rec.Get(prefix + "standard_start_time")
		s.ClosingTime = rec.Get(prefix + "standard_close_time")
		if s.OpeningTime != "" && s.ClosingTime != "" {
			for i, isOpen := range open {
				if isOpen {
					s.DayHours[i] = s.OpeningTime + " - " + s.ClosingTime
				}
			}
			if len(openNames) > 0 {
				s.FullSchedule = s.DaysOpen + ": " + renderRange12(s.OpeningTime, s.ClosingTime)
			}
		}
		return s
	}

	var parts []string
	for i, key := range dayFieldKeys {
		start := rec.Get(prefix + key + "_start")
		close := rec.Get(prefix + key + "_close")
		if start == "" || close == "" {
			continue
		}
		s.DayHours[i] = start + " - " + close
		if open[i] {
			parts = append(parts, weekdayNames[i]+": "+renderRange12(start, close))
		}
	}
	s.FullSchedule = strings.Join(parts, "; ")
	return s
}

// renderRange12 converts a 24-hour start/close pair to the 12-hour display
// form, e.g. ("08:00", "17:00") → "8:00 am - 5:00 pm". Unparseable values
// pass through unchanged.
func renderRange12(start, close string) string {
	return formatTime12(start) + " - " + formatTime12(close)
}

func formatTime12(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 pm")
}
