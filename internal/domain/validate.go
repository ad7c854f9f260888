package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared across the run; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// siteFields is the validatable projection of a SiteRecord. Only the fields
// with a parseable shape are checked; free-text fields are passed through.
type siteFields struct {
	ZipCode     string `validate:"omitempty,len=5,numeric"`
	State       string `validate:"omitempty,len=2,alpha"`
	OpeningTime string `validate:"omitempty,datetime=15:04"`
	ClosingTime string `validate:"omitempty,datetime=15:04"`
}

// validateSite checks the parseable fields of a normalized record and
// returns one warning per violation. Warnings never drop the record.
func validateSite(s SiteRecord) []RecordWarning {
	err := validate.Struct(siteFields{
		ZipCode:     s.ZipCode,
		State:       s.State,
		OpeningTime: s.Schedule.OpeningTime,
		ClosingTime: s.Schedule.ClosingTime,
	})
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []RecordWarning{{RecordID: s.RecordID, Field: "record", Message: err.Error()}}
	}

	warnings := make([]RecordWarning, 0, len(errs))
	for _, fe := range errs {
		warnings = append(warnings, RecordWarning{
			RecordID: s.RecordID,
			Field:    fieldColumn(fe.Field()),
			Message:  fmt.Sprintf("value %q fails %s", fe.Value(), fe.Tag()),
		})
	}
	return warnings
}

// fieldColumn maps struct field names back to snapshot column names.
func fieldColumn(field string) string {
	switch field {
	case "ZipCode":
		return "zip_code"
	case "State":
		return "state"
	case "OpeningTime":
		return "opening_time"
	case "ClosingTime":
		return "closing_time"
	}
	return field
}
