// Package snapshot persists the reconciled site table as a versioned CSV
// snapshot: the seed for the next run's coordinate cache and the authority
// consumed by downstream publishers.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/heatrelief/site-registry-etl/internal/domain"
)

const (
	snapshotFile  = "sites.csv"
	summaryFile   = "summary.txt"
	timestampForm = "2006-01-02 15:04"
)

// The fixed parts of the snapshot header. Service-flag columns are spliced
// in between, since their set depends on the schema fetched for the run.
var (
	leadColumns = []string{
		"record_id", "organization_name", "site_name", "site_type", "contact_email",
		"address", "city", "state", "zip_code", "full_address",
		"latitude", "longitude", "geocoded",
		"same_hours_everyday", "opening_time", "closing_time", "full_schedule", "days_open",
		"monday_hours", "tuesday_hours", "wednesday_hours", "thursday_hours",
		"friday_hours", "saturday_hours", "sunday_hours",
	}
	tailColumns = []string{
		"services_offered", "special_closure_dates", "review_status",
		"last_updated", "data_source",
	}
)

// Store reads and writes snapshots under a public directory, with one dated
// archive copy per calendar day under the archive directory.
type Store struct {
	snapshotDir string
	archiveDir  string
	logger      *slog.Logger
}

// NewStore creates a snapshot store. Directories are created on write.
func NewStore(snapshotDir, archiveDir string, logger *slog.Logger) *Store {
	return &Store{
		snapshotDir: snapshotDir,
		archiveDir:  archiveDir,
		logger:      logger,
	}
}

// SnapshotPath returns the location of the current snapshot.
func (s *Store) SnapshotPath() string {
	return filepath.Join(s.snapshotDir, snapshotFile)
}

// coordinateCache implements domain.CoordinateCache over the previous
// snapshot's rows.
type coordinateCache map[int]domain.Coordinates

func (c coordinateCache) Lookup(recordID int) (domain.Coordinates, bool) {
	coords, ok := c[recordID]
	return coords, ok
}

// LoadCache seeds the coordinate cache from the previous snapshot. A missing
// snapshot (first run) yields an empty cache; an unreadable one is an error,
// since silently dropping the cache would re-spend a geocoding credit for
// every accepted site.
func (s *Store) LoadCache() (domain.CoordinateCache, error) {
	rows, err := s.ReadSnapshot()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no previous snapshot, starting with empty coordinate cache")
			return coordinateCache{}, nil
		}
		return nil, err
	}

	cache := make(coordinateCache, len(rows))
	for _, row := range rows {
		id, err := strconv.Atoi(row["record_id"])
		if err != nil {
			continue
		}
		lat, errLat := strconv.ParseFloat(row["latitude"], 64)
		lon, errLon := strconv.ParseFloat(row["longitude"], 64)
		if errLat != nil || errLon != nil {
			continue
		}
		cache[id] = domain.Coordinates{Latitude: lat, Longitude: lon}
	}
	s.logger.Info("coordinate cache seeded", "entries", len(cache))
	return cache, nil
}

// ReadSnapshot returns the current snapshot as generic column→value rows.
func (s *Store) ReadSnapshot() ([]map[string]string, error) {
	f, err := os.Open(s.SnapshotPath())
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Write persists the full reconciled table: the current snapshot (written to
// a temp file and renamed, so readers never observe a partial table), the
// dated archive copy for today, and the human-readable summary. Nothing is
// touched until the in-memory table is complete, so a failed run leaves the
// previous snapshot as last-known-good.
func (s *Store) Write(sites []domain.SiteRecord, catalog domain.ServiceCatalog) error {
	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	data, err := renderCSV(sites, catalog)
	if err != nil {
		return err
	}

	if err := writeAtomic(s.SnapshotPath(), data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Info("snapshot written", "path", s.SnapshotPath(), "sites", len(sites))

	archivePath := filepath.Join(s.archiveDir,
		fmt.Sprintf("sites_%s.csv", domain.Now().Format("2006-01-02")))
	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	s.logger.Info("archive written", "path", archivePath)

	summaryPath := filepath.Join(s.snapshotDir, summaryFile)
	if err := os.WriteFile(summaryPath, []byte(renderSummary(sites)), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Header returns the snapshot column order for the run's service catalog.
func Header(catalog domain.ServiceCatalog) []string {
	header := make([]string, 0, len(leadColumns)+len(catalog)+len(tailColumns))
	header = append(header, leadColumns...)
	for _, opt := range catalog {
		header = append(header, opt.Flag)
	}
	header = append(header, tailColumns...)
	return header
}

func renderCSV(sites []domain.SiteRecord, catalog domain.ServiceCatalog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header(catalog)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, site := range sites {
		if err := w.Write(renderRow(site, catalog)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", site.RecordID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func renderRow(site domain.SiteRecord, catalog domain.ServiceCatalog) []string {
	lat, lon := "", ""
	if site.Geocoded {
		lat = strconv.FormatFloat(site.Latitude, 'f', -1, 64)
		lon = strconv.FormatFloat(site.Longitude, 'f', -1, 64)
	}

	row := []string{
		strconv.Itoa(site.RecordID),
		site.OrganizationName,
		site.SiteName,
		site.SiteType,
		site.ContactEmail,
		site.Address,
		site.City,
		site.State,
		site.ZipCode,
		site.FullAddress,
		lat,
		lon,
		strconv.FormatBool(site.Geocoded),
		strconv.FormatBool(site.Schedule.SameHoursEveryday),
		site.Schedule.OpeningTime,
		site.Schedule.ClosingTime,
		site.Schedule.FullSchedule,
		site.Schedule.DaysOpen,
	}
	row = append(row, site.Schedule.DayHours[:]...)
	for _, opt := range catalog {
		row = append(row, strconv.FormatBool(site.Services[opt.Flag]))
	}
	row = append(row,
		site.ServicesOffered,
		site.SpecialClosureDates,
		site.ReviewStatus,
		site.LastUpdated.Format(timestampForm),
		site.DataSource,
	)
	return row
}

func renderSummary(sites []domain.SiteRecord) string {
	counts := map[string]int{}
	geocoded := 0
	for _, site := range sites {
		counts[site.ReviewStatus]++
		if site.Geocoded {
			geocoded++
		}
	}

	return fmt.Sprintf(`Relief Site Registry
Updated: %s

Total Sites: %d
Accepted: %d
Pending: %d
Under Review: %d

Geocoded: %d
Missing Coordinates: %d
`,
		domain.Now().Format("2006-01-02 15:04:05"),
		len(sites),
		counts[domain.StatusAccepted],
		counts[domain.StatusPending],
		counts[domain.StatusUnderReview],
		geocoded,
		len(sites)-geocoded,
	)
}

// writeAtomic writes data to a sibling temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sites-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
