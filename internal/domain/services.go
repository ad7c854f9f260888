package domain

import (
	"sort"
	"strconv"
	"strings"
)

// ServiceOption is one member of the services checkbox group, discovered
// from the fetched schema rather than hardcoded.
type ServiceOption struct {
	Key   string // export column, e.g. "services___3"
	Label string // human label, e.g. "Storage for Belongings"
	Flag  string // derived flag name, e.g. "has_storage_for_belongings"
}

// ServiceCatalog is the ordered set of service options for the run. Order is
// deterministic (ascending option code) so derived columns and lists are
// stable across runs.
type ServiceCatalog []ServiceOption

// BuildServiceCatalog discovers the services checkbox group through the
// decoder. An empty catalog means the schema defines no services field.
func BuildServiceCatalog(dec FieldDecoder) ServiceCatalog {
	options := dec.CheckboxOptions("services")
	catalog := make(ServiceCatalog, 0, len(options))
	for key, label := range options {
		catalog = append(catalog, ServiceOption{
			Key:   key,
			Label: label,
			Flag:  ServiceFlagName(label),
		})
	}
	sort.Slice(catalog, func(i, j int) bool {
		return lessOptionKey(catalog[i].Key, catalog[j].Key)
	})
	return catalog
}

// FlagsFromBase reads every catalog option that exists as a column on a
// preseason row, returning the derived flag values.
func (c ServiceCatalog) FlagsFromBase(rec RawRecord) map[string]bool {
	flags := make(map[string]bool, len(c))
	for _, opt := range c {
		if !rec.Has(opt.Key) {
			continue
		}
		flags[opt.Flag] = rec.Get(opt.Key) == "1"
	}
	return flags
}

// OverrideFlags reads the temp_-prefixed service checkboxes from an
// in-season update row. Only options with an explicit value are returned;
// fields exported empty (untouched by the update instrument) are absent.
func (c ServiceCatalog) OverrideFlags(rec RawRecord) map[string]bool {
	flags := make(map[string]bool)
	for _, opt := range c {
		v := rec.Get("temp_" + opt.Key)
		if v == "" {
			continue
		}
		flags[opt.Flag] = v == "1"
	}
	return flags
}

// OfferedList renders the comma list of labels whose flags are set, in
// catalog order. A flag is true iff its label appears in the list.
func (c ServiceCatalog) OfferedList(flags map[string]bool) string {
	var labels []string
	for _, opt := range c {
		if flags[opt.Flag] {
			labels = append(labels, opt.Label)
		}
	}
	return strings.Join(labels, ", ")
}

// ServiceFlagName derives the boolean flag column name from an option label:
// lower-cased, spaces and hyphens normalized to underscores, prefixed has_.
func ServiceFlagName(label string) string {
	name := strings.ToLower(strings.TrimSpace(label))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return "has_" + name
}

// lessOptionKey orders checkbox column keys by their numeric code when both
// parse, falling back to lexical order for string codes.
func lessOptionKey(a, b string) bool {
	ca, cb := optionCode(a), optionCode(b)
	na, errA := strconv.Atoi(ca)
	nb, errB := strconv.Atoi(cb)
	if errA == nil && errB == nil {
		return na < nb
	}
	return ca < cb
}

func optionCode(key string) string {
	if i := strings.LastIndex(key, "___"); i >= 0 {
		return key[i+3:]
	}
	return key
}
