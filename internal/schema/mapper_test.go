package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testFields() []Field {
	return []Field{
		{Name: "site_type", Type: "dropdown", Choices: "1, Cooling Center | 2, Hydration Station | 3, Respite Center"},
		{Name: "review_status", Type: "radio", Choices: "0, Pending | 1, Accepted | 2, Under Review"},
		{Name: "services", Type: "checkbox", Choices: "1, Charging | 2, Showers | 3, Storage for Belongings"},
		{Name: "site_address", Type: "text", Choices: ""},
	}
}

func TestBuild_SingleSelect(t *testing.T) {
	m := Build(testFields())

	label, ok := m.Label("site_type", "2")
	assert.True(t, ok)
	assert.Equal(t, "Hydration Station", label)

	assert.Equal(t, "Accepted", m.Decode("review_status", "1"))
}

func TestBuild_IntegerCodesNormalized(t *testing.T) {
	m := Build([]Field{
		{Name: "region", Type: "dropdown", Choices: "01, East Valley | 2, West Valley"},
	})

	label, ok := m.Label("region", "1")
	assert.True(t, ok, "zero-padded codes collapse to their integer form")
	assert.Equal(t, "East Valley", label)

	label, ok = m.Label("region", "02")
	assert.True(t, ok)
	assert.Equal(t, "West Valley", label)
}

func TestBuild_StringCodesKeptRaw(t *testing.T) {
	m := Build([]Field{
		{Name: "tier", Type: "dropdown", Choices: "gold, Gold Tier | silver, Silver Tier"},
	})

	label, ok := m.Label("tier", "gold")
	assert.True(t, ok)
	assert.Equal(t, "Gold Tier", label)
}

func TestBuild_CheckboxOptions(t *testing.T) {
	m := Build(testFields())

	options := m.CheckboxOptions("services")
	assert.Len(t, options, 3)
	assert.Equal(t, "Storage for Belongings", options["services___3"])

	assert.Empty(t, m.CheckboxOptions("site_type"), "non-checkbox fields have no options")
}

func TestBuild_MissingFieldYieldsPassthrough(t *testing.T) {
	m := Build(testFields())

	_, ok := m.Label("unknown_field", "1")
	assert.False(t, ok)
	assert.Equal(t, "1", m.Decode("unknown_field", "1"), "no mapping means raw pass-through")
}

func TestBuild_EmptyChoiceSpecIsNotAnError(t *testing.T) {
	m := Build(testFields())

	_, ok := m.Label("site_address", "anything")
	assert.False(t, ok)
}

func TestParseChoices_TolerantOfMalformedEntries(t *testing.T) {
	m := Build([]Field{
		{Name: "mixed", Type: "dropdown", Choices: "1, Valid | no-comma-entry | 2, Also Valid |"},
	})

	label, ok := m.Label("mixed", "1")
	assert.True(t, ok)
	assert.Equal(t, "Valid", label)

	label, ok = m.Label("mixed", "2")
	assert.True(t, ok)
	assert.Equal(t, "Also Valid", label)

	_, ok = m.Label("mixed", "no-comma-entry")
	assert.False(t, ok, "entries lacking a comma are skipped")
}
