package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Review status labels. The fetched schema is authoritative for code→label
// decoding; these constants only name the documented states.
const (
	StatusPending     = "Pending"
	StatusUnderReview = "Under Review"
	StatusAccepted    = "Accepted"
)

// Data source attribution for a reconciled record.
const (
	SourcePreseason = "preseason"
	SourceInSeason  = "in-season update"
)

// RawRecord is one row of the flat REDCap export. REDCap serializes every
// value as a string, but the decoder tolerates numbers and booleans from
// older export formats.
type RawRecord map[string]string

// UnmarshalJSON coerces any scalar value to its string form.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return fmt.Errorf("parse export row: %w", err)
	}

	out := make(RawRecord, len(row))
	for key, val := range row {
		switch v := val.(type) {
		case string:
			out[key] = v
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			if v {
				out[key] = "1"
			} else {
				out[key] = "0"
			}
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	*r = out
	return nil
}

// Get returns the trimmed value for key, or "" when the column is absent.
func (r RawRecord) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Has reports whether the column exists on the row, regardless of value.
func (r RawRecord) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// RecordID parses the row's record_id. Every REDCap export row carries one;
// a missing or non-positive value means the row cannot be attributed.
func (r RawRecord) RecordID() (int, error) {
	raw := r.Get("record_id")
	if raw == "" {
		return 0, fmt.Errorf("row has no record_id")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record_id %q", raw)
	}
	return id, nil
}

// Instrument returns the repeat-instrument discriminator for the row.
func (r RawRecord) Instrument() string {
	return r.Get("redcap_repeat_instrument")
}

// WeeklySchedule is a site's weekly hours. It is replaced as a unit when an
// in-season update touches any schedule field.
type WeeklySchedule struct {
	SameHoursEveryday bool
	OpeningTime       string // HH:MM 24-hour, set when SameHoursEveryday
	ClosingTime       string
	DaysOpen          string    // display list, e.g. "Monday, Wednesday"
	DayHours          [7]string // Monday..Sunday, "HH:MM - HH:MM" or empty
	FullSchedule      string    // human-readable 12-hour summary
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// SiteRecord is the canonical, reconciled representation of one service site.
type SiteRecord struct {
	RecordID         int
	OrganizationName string
	SiteName         string
	SiteType         string
	ContactEmail     string

	Address     string
	City        string
	State       string
	ZipCode     string
	FullAddress string

	Latitude  float64
	Longitude float64
	Geocoded  bool

	Schedule WeeklySchedule

	Services        map[string]bool // has_* flag name → set
	ServicesOffered string

	SpecialClosureDates string

	ReviewStatus string
	DataSource   string
	LastUpdated  time.Time
}

// SetCoordinates records a coordinate pair produced by this system.
func (s *SiteRecord) SetCoordinates(c Coordinates) {
	s.Latitude = c.Latitude
	s.Longitude = c.Longitude
	s.Geocoded = true
}

// RecordWarning is a non-fatal data problem attributable to one record.
// Warnings are collected across the run, never raised mid-batch.
type RecordWarning struct {
	RecordID int
	Field    string
	Message  string
}

func (w RecordWarning) String() string {
	return fmt.Sprintf("record %d: %s: %s", w.RecordID, w.Field, w.Message)
}
