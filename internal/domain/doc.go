// Package domain models the seasonal relief-site registry built from REDCap
// survey submissions.
//
// # Data Source
//
// Sites are registered through a REDCap project with two instruments: a
// preseason intake form (one submission per site) and a repeating
// "in_season_updates" instrument (zero or more dated update submissions per
// site). The flat JSON export interleaves both; rows are told apart by the
// redcap_repeat_instrument column, which is empty for preseason rows.
//
// # REDCap Export Conventions
//
// Every value arrives as a string. Coded fields (dropdowns, radios) export
// the numeric code, not the label; labels come from the project metadata's
// pipe-delimited choice spec ("1, Cooling Center | 2, Hydration Station").
// Checkbox groups export one column per option, named field___code, with
// "1" for checked and "0" for unchecked. On repeat-instrument rows, fields
// belonging to other instruments export as empty strings, so presence of a
// non-empty value is the signal that an update touches a field group.
//
// Weekly schedule fields:
//
//	days_open___1 .. days_open___7   checkbox, Monday=1 through Sunday=7
//	same_hours_everyday              "1" when one time range covers all open days
//	standard_start_time/_close_time  HH:MM 24-hour, used when same_hours_everyday
//	mon_start/mon_close .. sun_close seven independent HH:MM pairs otherwise
//
// In-season update rows carry the same schedule fields under a temp_ prefix,
// plus temp_services___* checkboxes and temp_closure_date_1..10.
//
// Holiday fields (memorial_day, juneteenth, independence_day, labor_day) are
// yes/no radios where code "0" means the site is explicitly closed that day.
// Floating holidays are resolved for the configured season year.
//
// # Identity
//
// record_id is assigned by REDCap, is stable for the life of a site, and is
// the key for update reconciliation and for the coordinate cache seeded from
// the previous snapshot. Coordinates are fetched from the paid geocoder at
// most once per site; see [AssignCoordinates].
package domain
