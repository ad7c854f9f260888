// Package reconcile folds in-season update submissions into the canonical
// preseason site table.
package reconcile

import (
	"log/slog"

	"github.com/heatrelief/site-registry-etl/internal/domain"
)

// overrideInstrument is the repeat-instrument sentinel marking an in-season
// update row in the REDCap export.
const overrideInstrument = "in_season_updates"

// Split partitions the raw export into base rows (one per site) and
// override rows (zero or more per site), preserving input order. Rows from
// an unrecognized repeat instrument are logged and dropped.
func Split(rows []domain.RawRecord, logger *slog.Logger) (base, overrides []domain.RawRecord) {
	for _, row := range rows {
		switch row.Instrument() {
		case "":
			base = append(base, row)
		case overrideInstrument:
			overrides = append(overrides, row)
		default:
			logger.Warn("unknown repeat instrument, dropping row",
				"instrument", row.Instrument(),
				"record_id", row.Get("record_id"),
			)
		}
	}
	return base, overrides
}
