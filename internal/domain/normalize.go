package domain

import (
	"strings"
)

// NormalizeOptions carries the run-level settings the normalizer needs.
type NormalizeOptions struct {
	// SeasonYear anchors floating-holiday resolution.
	SeasonYear int
	// StateCode is the fixed state used when the survey has no decodable
	// state field (the registry is single-state).
	StateCode string
}

// NormalizeSite builds the canonical SiteRecord from one preseason row.
//
// Coded fields are resolved through dec; an unmapped review_status code
// defaults to Pending and never fails the row. Malformed field values
// surface as collected warnings — the record is still emitted with
// best-effort values. The returned error is reserved for rows that cannot
// be attributed at all (missing record_id).
func NormalizeSite(rec RawRecord, dec FieldDecoder, catalog ServiceCatalog, opts NormalizeOptions) (SiteRecord, []RecordWarning, error) {
	id, err := rec.RecordID()
	if err != nil {
		return SiteRecord{}, nil, err
	}

	site := SiteRecord{
		RecordID:         id,
		OrganizationName: rec.Get("hrs_org"),
		SiteName:         rec.Get("hrs_location"),
		SiteType:         dec.Decode("site_type", rec.Get("site_type")),
		ContactEmail:     rec.Get("site_email"),
		Address:          rec.Get("site_address"),
		City:             rec.Get("site_city"),
		ReviewStatus:     resolveStatus(dec, rec.Get("review_status")),
		DataSource:       SourcePreseason,
		LastUpdated:      clock.Now(),
	}

	site.State = opts.StateCode
	if code := rec.Get("site_state"); code != "" {
		site.State = dec.Decode("site_state", code)
	}
	site.ZipCode = padZip(rec.Get("site_zip"))
	site.FullAddress = site.Address + ", " + site.City + ", " + site.State + " " + site.ZipCode

	site.Schedule = BuildSchedule(rec, "")

	site.Services = catalog.FlagsFromBase(rec)
	site.ServicesOffered = catalog.OfferedList(site.Services)

	dates := ExplicitClosureDates(rec, "")
	dates = append(dates, holidayClosureDates(rec, opts.SeasonYear)...)
	site.SpecialClosureDates = strings.Join(dates, ", ")

	return site, validateSite(site), nil
}

// resolveStatus decodes the review status through the schema mapping.
// Missing or unmapped codes default to Pending; the schema is authoritative
// for everything else.
func resolveStatus(dec FieldDecoder, code string) string {
	if code == "" {
		return StatusPending
	}
	label, ok := dec.Label("review_status", code)
	if !ok {
		return StatusPending
	}
	return label
}

// padZip left-zero-pads a zip code to five digits. REDCap strips leading
// zeros from numeric-validated fields. Values that are not plausibly a zip
// are returned as-is and flagged by validation.
func padZip(zip string) string {
	if zip == "" || len(zip) >= 5 {
		return zip
	}
	return strings.Repeat("0", 5-len(zip)) + zip
}
