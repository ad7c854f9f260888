// Package schema builds coded-value lookup tables from a REDCap project's
// metadata export, so no field codes are hardcoded in the pipeline.
package schema

import (
	"strconv"
	"strings"
)

// Field is one row of the metadata export.
type Field struct {
	Name    string `json:"field_name"`
	Type    string `json:"field_type"`
	Choices string `json:"select_choices_or_calculations"`
}

// Mappings holds the per-run decode tables. Built once, read-only after.
// It implements domain.FieldDecoder.
type Mappings struct {
	// choices: field → normalized code → label, for single-select fields.
	choices map[string]map[string]string
	// checkboxes: field → export column key (field___code) → label.
	checkboxes map[string]map[string]string
}

// Build parses the choice specs out of the metadata table. Fields with an
// empty or absent spec simply produce no mapping; malformed entries are
// skipped, never fatal — callers fall back to raw-value pass-through.
func Build(fields []Field) *Mappings {
	m := &Mappings{
		choices:    make(map[string]map[string]string),
		checkboxes: make(map[string]map[string]string),
	}

	for _, f := range fields {
		options := parseChoices(f.Choices)
		if len(options) == 0 {
			continue
		}
		if f.Type == "checkbox" {
			group := make(map[string]string, len(options))
			for _, opt := range options {
				group[f.Name+"___"+opt.code] = opt.label
			}
			m.checkboxes[f.Name] = group
			continue
		}
		byCode := make(map[string]string, len(options))
		for _, opt := range options {
			byCode[opt.code] = opt.label
		}
		m.choices[f.Name] = byCode
	}
	return m
}

// Label returns the label for a coded value and whether a mapping exists.
func (m *Mappings) Label(field, code string) (string, bool) {
	label, ok := m.choices[field][normalizeCode(code)]
	return label, ok
}

// Decode returns the label for a coded value, or the raw code unchanged
// when no mapping is available.
func (m *Mappings) Decode(field, code string) string {
	if label, ok := m.Label(field, code); ok {
		return label
	}
	return code
}

// CheckboxOptions returns the export column keys and labels for a
// checkbox-group field. Empty when the field is unknown.
func (m *Mappings) CheckboxOptions(field string) map[string]string {
	return m.checkboxes[field]
}

type choice struct {
	code  string
	label string
}

// parseChoices splits a pipe-delimited choice spec
// ("1, Cooling Center | 2, Hydration Station") into code/label pairs.
// Entries without a comma carry no label and are skipped.
func parseChoices(spec string) []choice {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}

	var out []choice
	for _, entry := range strings.Split(spec, "|") {
		code, label, ok := strings.Cut(entry, ",")
		if !ok {
			continue
		}
		code = normalizeCode(code)
		label = strings.TrimSpace(label)
		if code == "" || label == "" {
			continue
		}
		out = append(out, choice{code: code, label: label})
	}
	return out
}

// normalizeCode keys integer codes by their canonical form ("01" and "1"
// collide on purpose); non-integer codes keep their trimmed raw form.
func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if n, err := strconv.Atoi(code); err == nil {
		return strconv.Itoa(n)
	}
	return code
}
