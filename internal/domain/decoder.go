package domain

// FieldDecoder resolves coded survey values to labels using the schema
// fetched for the current run. Implementations must be safe for read-only
// use after construction; an empty mapping means "no decoding available"
// and callers pass the raw value through.
type FieldDecoder interface {
	// Label returns the label for a coded value and whether a mapping exists.
	Label(field, code string) (string, bool)

	// Decode returns the label for a coded value, or the raw code when no
	// mapping exists.
	Decode(field, code string) string

	// CheckboxOptions returns the synthesized per-option column keys
	// (field___code) and their labels for a checkbox-group field. The result
	// is empty when the field is unknown or not a checkbox group.
	CheckboxOptions(field string) map[string]string
}
