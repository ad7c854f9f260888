package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatrelief/site-registry-etl/internal/domain"
	"github.com/heatrelief/site-registry-etl/internal/observability"
	"github.com/heatrelief/site-registry-etl/internal/schema"
)

// --- mocks ---

type mockSource struct {
	fields  []schema.Field
	rows    []domain.RawRecord
	metaErr error
	recErr  error
}

func (m *mockSource) FetchMetadata(_ context.Context) ([]schema.Field, error) {
	return m.fields, m.metaErr
}

func (m *mockSource) FetchRecords(_ context.Context) ([]domain.RawRecord, error) {
	return m.rows, m.recErr
}

type testCache map[int]domain.Coordinates

func (c testCache) Lookup(recordID int) (domain.Coordinates, bool) {
	coords, ok := c[recordID]
	return coords, ok
}

type mockStore struct {
	cache    testCache
	loadErr  error
	writeErr error
	written  [][]domain.SiteRecord
}

func (m *mockStore) LoadCache() (domain.CoordinateCache, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.cache == nil {
		return testCache{}, nil
	}
	return m.cache, nil
}

func (m *mockStore) Write(sites []domain.SiteRecord, _ domain.ServiceCatalog) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, sites)
	return nil
}

type mockGeocoder struct {
	coords domain.Coordinates
	calls  int
}

func (m *mockGeocoder) Geocode(_ context.Context, _ string) (domain.Coordinates, bool, error) {
	m.calls++
	return m.coords, true, nil
}

// --- fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func frozenClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.June, 20, 5, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func testFields() []schema.Field {
	return []schema.Field{
		{Name: "site_type", Type: "dropdown", Choices: "1, Cooling Center | 2, Hydration Station"},
		{Name: "review_status", Type: "radio", Choices: "0, Pending | 1, Accepted | 2, Under Review"},
		{Name: "services", Type: "checkbox", Choices: "1, Charging | 2, Showers"},
	}
}

func testRows() []domain.RawRecord {
	return []domain.RawRecord{
		// Deliberately out of id order; output must sort by record identity.
		{
			"record_id": "9", "hrs_location": "Tempe Shade Pavilion",
			"site_type": "2", "review_status": "0",
			"site_address": "100 Mill Ave", "site_city": "Tempe", "site_zip": "85281",
		},
		{
			"record_id": "4", "hrs_location": "Mesa Community Hall",
			"site_type": "1", "review_status": "1",
			"site_address": "401 E Main St", "site_city": "Mesa", "site_zip": "85201",
			"same_hours_everyday": "1",
			"standard_start_time": "08:00", "standard_close_time": "17:00",
			"days_open___1": "1",
			"services___1": "1",
		},
		{
			"record_id": "4", "redcap_repeat_instrument": "in_season_updates",
			"update_date":         "2026-06-10",
			"temp_closure_date_1": "2026-07-04",
		},
		{
			"record_id": "77", "redcap_repeat_instrument": "in_season_updates",
			"update_date": "2026-06-10", "temp_closure_date_1": "2026-07-04",
		},
	}
}

func newPipeline(source *mockSource, geocoder domain.Geocoder, store *mockStore) *Pipeline {
	return New(source, geocoder, store, discardLogger(), observability.NewMetrics(), 2026, "AZ")
}

// --- tests ---

func TestRun(t *testing.T) {
	frozenClock(t)
	source := &mockSource{fields: testFields(), rows: testRows()}
	store := &mockStore{}
	geocoder := &mockGeocoder{coords: domain.Coordinates{Latitude: 33.4, Longitude: -111.8}}

	summary, err := newPipeline(source, geocoder, store).Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Geocoded)
	assert.Equal(t, 1, summary.MissingCoordinates)
	assert.Equal(t, 1, summary.OverridesApplied)
	assert.Equal(t, 1, summary.OverrideOrphans)

	require.Len(t, store.written, 1)
	sites := store.written[0]
	require.Len(t, sites, 2)
	assert.Equal(t, 4, sites[0].RecordID, "output sorted by record identity")
	assert.Equal(t, 9, sites[1].RecordID)

	mesa := sites[0]
	assert.Equal(t, "Cooling Center", mesa.SiteType)
	assert.True(t, mesa.Geocoded)
	assert.Equal(t, "2026-07-04", mesa.SpecialClosureDates, "override closure applied")
	assert.Equal(t, domain.SourceInSeason, mesa.DataSource)
	assert.Equal(t, 1, geocoder.calls, "only the accepted site is geocoded")
}

func TestRun_SchemaFetchFailureIsFatal(t *testing.T) {
	source := &mockSource{metaErr: errors.New("unreachable")}
	store := &mockStore{}

	_, err := newPipeline(source, nil, store).Run(context.Background(), "run-1")
	require.Error(t, err)
	assert.Empty(t, store.written, "nothing is written on a fatal error")
}

func TestRun_RecordFetchFailureIsFatal(t *testing.T) {
	source := &mockSource{fields: testFields(), recErr: errors.New("unreachable")}
	store := &mockStore{}

	_, err := newPipeline(source, nil, store).Run(context.Background(), "run-1")
	require.Error(t, err)
	assert.Empty(t, store.written)
}

func TestRun_CacheSeedFailureIsFatal(t *testing.T) {
	source := &mockSource{fields: testFields(), rows: testRows()}
	store := &mockStore{loadErr: errors.New("corrupt snapshot")}

	_, err := newPipeline(source, nil, store).Run(context.Background(), "run-1")
	require.Error(t, err)
	assert.Empty(t, store.written)
}

func TestRun_AtMostOnceGeocodingAcrossRuns(t *testing.T) {
	frozenClock(t)
	geocoder := &mockGeocoder{coords: domain.Coordinates{Latitude: 33.4, Longitude: -111.8}}

	// First run: empty cache, one credit spent.
	firstStore := &mockStore{}
	_, err := newPipeline(&mockSource{fields: testFields(), rows: testRows()}, geocoder, firstStore).
		Run(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, 1, geocoder.calls)

	// Second run seeds its cache from the first run's snapshot.
	cache := testCache{}
	for _, site := range firstStore.written[0] {
		if site.Geocoded {
			cache[site.RecordID] = domain.Coordinates{Latitude: site.Latitude, Longitude: site.Longitude}
		}
	}
	secondStore := &mockStore{cache: cache}
	summary, err := newPipeline(&mockSource{fields: testFields(), rows: testRows()}, geocoder, secondStore).
		Run(context.Background(), "run-2")
	require.NoError(t, err)

	assert.Equal(t, 1, geocoder.calls, "cached site is never re-geocoded")
	assert.Equal(t, 1, summary.GeocodeStats.Reused)
	assert.True(t, secondStore.written[0][0].Geocoded)
}

func TestRun_Idempotent(t *testing.T) {
	frozenClock(t)
	geocoder := &mockGeocoder{coords: domain.Coordinates{Latitude: 33.4, Longitude: -111.8}}

	run := func() []domain.SiteRecord {
		store := &mockStore{}
		_, err := newPipeline(&mockSource{fields: testFields(), rows: testRows()}, geocoder, store).
			Run(context.Background(), "run")
		require.NoError(t, err)
		return store.written[0]
	}

	assert.Equal(t, run(), run(), "identical inputs reproduce identical rows")
}

func TestRun_WriteFailureIsFatal(t *testing.T) {
	frozenClock(t)
	source := &mockSource{fields: testFields(), rows: testRows()}
	store := &mockStore{writeErr: errors.New("disk full")}

	_, err := newPipeline(source, nil, store).Run(context.Background(), "run-1")
	assert.Error(t, err)
}
