package domain

import (
	"context"
	"log/slog"
)

// Geocoder resolves a free-text street address to coordinates. found is
// false when the provider returns no candidates, which is a valid answer,
// not an error.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (coords Coordinates, found bool, err error)
}

// CoordinateCache looks up coordinates persisted by a previous run, keyed by
// record identity. Lookup is read-only for the life of the run.
type CoordinateCache interface {
	Lookup(recordID int) (Coordinates, bool)
}

// GeocodeStats accounts for external-credit consumption during one run.
type GeocodeStats struct {
	Reused    int // coordinates copied from the previous snapshot
	Requested int // external lookups issued
	Found     int // external lookups that returned a result
	Failed    int // external lookups that errored or found nothing
	Skipped   int // sites not yet Accepted
}

// AssignCoordinates fills in coordinates for every site, minimizing paid
// lookups. Per site, in priority order: previously cached coordinates are
// copied verbatim (never re-geocoded, regardless of current status);
// non-Accepted sites are left without coordinates; remaining Accepted sites
// get one external lookup each. Lookup failures are per-site warnings, never
// fatal. A nil geocoder disables the external path entirely, so absent
// credentials degrade to cache-only behavior.
func AssignCoordinates(ctx context.Context, sites []SiteRecord, cache CoordinateCache, geocoder Geocoder, logger *slog.Logger) GeocodeStats {
	var stats GeocodeStats

	for i := range sites {
		site := &sites[i]

		if cache != nil {
			if coords, ok := cache.Lookup(site.RecordID); ok {
				site.SetCoordinates(coords)
				stats.Reused++
				continue
			}
		}

		if site.ReviewStatus != StatusAccepted {
			stats.Skipped++
			continue
		}

		if geocoder == nil {
			continue
		}

		stats.Requested++
		coords, found, err := geocoder.Geocode(ctx, site.FullAddress)
		if err != nil {
			stats.Failed++
			logger.Warn("geocoding failed",
				"record_id", site.RecordID,
				"address", site.FullAddress,
				"error", err,
			)
			continue
		}
		if !found {
			stats.Failed++
			logger.Warn("no geocoding results",
				"record_id", site.RecordID,
				"address", site.FullAddress,
			)
			continue
		}

		site.SetCoordinates(coords)
		stats.Found++
	}

	return stats
}
