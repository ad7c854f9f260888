package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapDecoder is a fixed-table FieldDecoder for tests.
type mapDecoder struct {
	choices map[string]map[string]string
	boxes   map[string]map[string]string
}

func (d mapDecoder) Label(field, code string) (string, bool) {
	label, ok := d.choices[field][code]
	return label, ok
}

func (d mapDecoder) Decode(field, code string) string {
	if label, ok := d.Label(field, code); ok {
		return label
	}
	return code
}

func (d mapDecoder) CheckboxOptions(field string) map[string]string {
	return d.boxes[field]
}

func testDecoder() mapDecoder {
	return mapDecoder{
		choices: map[string]map[string]string{
			"site_type":     {"1": "Cooling Center", "2": "Hydration Station"},
			"review_status": {"0": "Pending", "1": "Accepted", "2": "Under Review"},
		},
		boxes: map[string]map[string]string{
			"services": {
				"services___1": "Charging",
				"services___2": "Showers",
				"services___3": "Storage for Belongings",
			},
		},
	}
}

func testOpts() NormalizeOptions {
	return NormalizeOptions{SeasonYear: 2026, StateCode: "AZ"}
}

func frozenClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2026, time.June, 1, 10, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })
	return now
}

func baseRow() RawRecord {
	return RawRecord{
		"record_id":     "17",
		"hrs_org":       "Desert Aid Coalition",
		"hrs_location":  "Mesa Community Hall",
		"site_type":     "1",
		"site_email":    "ops@desertaid.example.org",
		"site_address":  "401 E Main St",
		"site_city":     "Mesa",
		"site_zip":      "8520",
		"review_status": "1",
	}
}

func TestNormalizeSite_Basics(t *testing.T) {
	now := frozenClock(t)
	dec := testDecoder()
	catalog := BuildServiceCatalog(dec)

	site, warnings, err := NormalizeSite(baseRow(), dec, catalog, testOpts())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 17, site.RecordID)
	assert.Equal(t, "Desert Aid Coalition", site.OrganizationName)
	assert.Equal(t, "Cooling Center", site.SiteType)
	assert.Equal(t, "AZ", site.State)
	assert.Equal(t, "08520", site.ZipCode, "zip is left-zero-padded")
	assert.Equal(t, "401 E Main St, Mesa, AZ 08520", site.FullAddress)
	assert.Equal(t, StatusAccepted, site.ReviewStatus)
	assert.Equal(t, SourcePreseason, site.DataSource)
	assert.Equal(t, now, site.LastUpdated)
	assert.False(t, site.Geocoded)
}

func TestNormalizeSite_UnmappedStatusDefaultsToPending(t *testing.T) {
	frozenClock(t)
	dec := testDecoder()
	catalog := BuildServiceCatalog(dec)

	row := baseRow()
	row["review_status"] = "9"

	site, _, err := NormalizeSite(row, dec, catalog, testOpts())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, site.ReviewStatus)

	row["review_status"] = ""
	site, _, err = NormalizeSite(row, dec, catalog, testOpts())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, site.ReviewStatus)
}

func TestNormalizeSite_ServiceFlags(t *testing.T) {
	frozenClock(t)
	dec := testDecoder()
	catalog := BuildServiceCatalog(dec)

	row := baseRow()
	row["services___1"] = "1"
	row["services___2"] = "0"
	row["services___3"] = "1"

	site, _, err := NormalizeSite(row, dec, catalog, testOpts())
	require.NoError(t, err)

	assert.True(t, site.Services["has_charging"])
	assert.False(t, site.Services["has_showers"])
	assert.True(t, site.Services["has_storage_for_belongings"])
	assert.Equal(t, "Charging, Storage for Belongings", site.ServicesOffered)
}

func TestNormalizeSite_ClosureAggregation(t *testing.T) {
	frozenClock(t)
	dec := testDecoder()
	catalog := BuildServiceCatalog(dec)

	row := baseRow()
	row["closure_date_1"] = "2026-07-01"
	row["memorial_day"] = "0"
	row["labor_day"] = "1" // open, not a closure
	row["juneteenth"] = "" // unanswered, not a closure

	site, _, err := NormalizeSite(row, dec, catalog, testOpts())
	require.NoError(t, err)

	assert.Equal(t, "2026-07-01, 2026-05-25", site.SpecialClosureDates)
}

func TestNormalizeSite_ValidationWarnings(t *testing.T) {
	frozenClock(t)
	dec := testDecoder()
	catalog := BuildServiceCatalog(dec)

	row := baseRow()
	row["site_zip"] = "not-a-zip"

	site, warnings, err := NormalizeSite(row, dec, catalog, testOpts())
	require.NoError(t, err, "a bad zip never drops the record")

	require.Len(t, warnings, 1)
	assert.Equal(t, 17, warnings[0].RecordID)
	assert.Equal(t, "zip_code", warnings[0].Field)
	assert.Equal(t, "not-a-zip", site.ZipCode, "best-effort value is kept")
}

func TestNormalizeSite_MissingRecordID(t *testing.T) {
	frozenClock(t)
	dec := testDecoder()
	catalog := BuildServiceCatalog(dec)

	_, _, err := NormalizeSite(RawRecord{"hrs_location": "Nowhere"}, dec, catalog, testOpts())
	assert.Error(t, err)
}

func TestServiceFlagName(t *testing.T) {
	assert.Equal(t, "has_storage_for_belongings", ServiceFlagName("Storage for Belongings"))
	assert.Equal(t, "has_pet_services", ServiceFlagName("Pet Services"))
	assert.Equal(t, "has_wi_fi", ServiceFlagName("Wi-Fi"))
}
