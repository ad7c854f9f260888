package reconcile

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heatrelief/site-registry-etl/internal/domain"
)

// Stats summarizes one reconciliation pass.
type Stats struct {
	Applied   int // sites changed by an override
	Orphaned  int // overrides with no matching base record
	Discarded int // overrides superseded by a later one for the same site
	Malformed int // override rows that could not be attributed
}

// override is a parsed in-season update row.
type override struct {
	recordID   int
	updateDate time.Time
	row        domain.RawRecord
}

// Apply folds override rows into the site table in place. Per site, the
// override with the latest update_date wins (input order breaks ties — last
// one wins), and its field groups are applied independently: the weekly
// schedule is replaced as a unit, service flags are overwritten
// individually, and closure dates are replaced wholesale. Any applied group
// marks the site as in-season sourced and refreshes last_updated.
//
// Reconciliation is deterministic for a given base set and override set;
// only the timestamp depends on the clock.
func Apply(sites []domain.SiteRecord, overrideRows []domain.RawRecord, catalog domain.ServiceCatalog, logger *slog.Logger) Stats {
	var stats Stats
	if len(overrideRows) == 0 {
		return stats
	}

	latest := selectLatest(overrideRows, logger, &stats)

	byID := make(map[int]*domain.SiteRecord, len(sites))
	for i := range sites {
		byID[sites[i].RecordID] = &sites[i]
	}

	for _, ov := range latest {
		site, ok := byID[ov.recordID]
		if !ok {
			stats.Orphaned++
			logger.Warn("override for unknown site, skipping",
				"record_id", ov.recordID,
				"update_date", ov.updateDate.Format("2006-01-02"),
			)
			continue
		}
		if applyOverride(site, ov.row, catalog) {
			stats.Applied++
			logger.Info("in-season update applied",
				"record_id", site.RecordID,
				"site_name", site.SiteName,
				"update_date", ov.updateDate.Format("2006-01-02"),
			)
		}
	}
	return stats
}

// selectLatest keeps the single winning override per record id, using an
// explicit (update_date, input order) comparator so reordering the export
// cannot change outcomes. Rows without a usable record_id are counted and
// dropped; a missing update_date defaults to the run time.
func selectLatest(rows []domain.RawRecord, logger *slog.Logger, stats *Stats) []override {
	best := make(map[int]int) // record id → index into winners
	var winners []override

	for _, row := range rows {
		id, err := row.RecordID()
		if err != nil {
			stats.Malformed++
			logger.Warn("unattributable override row, skipping", "error", err)
			continue
		}

		ov := override{recordID: id, updateDate: parseUpdateDate(row), row: row}

		i, seen := best[id]
		if !seen {
			best[id] = len(winners)
			winners = append(winners, ov)
			continue
		}
		// Later input wins ties, so "not before" replaces.
		if !ov.updateDate.Before(winners[i].updateDate) {
			winners[i] = ov
		}
		stats.Discarded++
	}
	return winners
}

func parseUpdateDate(row domain.RawRecord) time.Time {
	raw := row.Get("update_date")
	if raw == "" {
		return domain.Now()
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return domain.Now()
}

// applyOverride applies the override's present field groups and reports
// whether anything changed.
func applyOverride(site *domain.SiteRecord, row domain.RawRecord, catalog domain.ServiceCatalog) bool {
	applied := false

	if hasScheduleFields(row) {
		site.Schedule = domain.BuildSchedule(row, "temp_")
		applied = true
	}

	if flags := catalog.OverrideFlags(row); len(flags) > 0 {
		for name, v := range flags {
			site.Services[name] = v
		}
		site.ServicesOffered = catalog.OfferedList(site.Services)
		applied = true
	}

	if dates := domain.ExplicitClosureDates(row, "temp_"); len(dates) > 0 {
		site.SpecialClosureDates = strings.Join(dates, ", ")
		applied = true
	}

	if applied {
		site.DataSource = domain.SourceInSeason
		site.LastUpdated = domain.Now()
	}
	return applied
}

// hasScheduleFields reports whether the override touches the weekly
// schedule. Any non-empty schedule field counts; the group is then rebuilt
// as a unit from the temp_ variants.
func hasScheduleFields(row domain.RawRecord) bool {
	keys := []string{
		"temp_same_hours_everyday",
		"temp_standard_start_time",
		"temp_standard_close_time",
	}
	for i := 1; i <= 7; i++ {
		keys = append(keys, fmt.Sprintf("temp_days_open___%d", i))
	}
	for _, day := range []string{"mon", "tues", "wed", "thurs", "fri", "sat", "sun"} {
		keys = append(keys, "temp_"+day+"_start", "temp_"+day+"_close")
	}
	for _, k := range keys {
		if row.Get(k) != "" {
			return true
		}
	}
	return false
}
