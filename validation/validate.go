package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"github.com/go-playground/validator/v10"
)

// ErrorType categorises one validation finding.
type ErrorType string

const (
	MissingRequiredField  ErrorType = "MissingRequiredField"
	FieldTooLong          ErrorType = "FieldTooLong"
	InvalidDataType       ErrorType = "InvalidDataType"
	BusinessRuleViolation ErrorType = "BusinessRuleViolation"
	DuplicateEntry        ErrorType = "DuplicateEntry"
)

// ValidationError is one finding against one surface row. Errors are
// transient: rebuilt on every run, never persisted.
type ValidationError struct {
	RowNumber int       `json:"row_number"`
	Type      ErrorType `json:"error_type"`
	Message   string    `json:"message"`
}

// Report holds the findings of one validation pass, in row-scan order.
type Report struct {
	Errors []ValidationError `json:"errors"`
}

// Clean reports whether the batch may be submitted.
func (r *Report) Clean() bool {
	return len(r.Errors) == 0
}

func (r *Report) add(row int, t ErrorType, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{
		RowNumber: row,
		Type:      t,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Render flattens the report to text. Validation is idempotent, so two runs
// over the same input must render byte-identically.
func (r *Report) Render() string {
	var b strings.Builder
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "row %d [%s]: %s\n", e.RowNumber, e.Type, e.Message)
	}
	return b.String()
}

var validate = validator.New()

// statuses that require a justification before archiving
var justificationStatuses = map[string]bool{
	"approved":      true,
	"dispositioned": true,
}

// ValidateBatch runs every rule over the extracted records in a single pass:
// one loop, all rules evaluated per row, findings appended in scan order. A
// row can produce several independent findings.
func ValidateBatch(records []*sheet.ProjectRecord) *Report {
	report := &Report{}

	// composite key (entity_id, project_id, line_item) -> first row number
	firstSeen := make(map[string]int, len(records))

	for _, rec := range records {
		row := rec.RowNumber

		for _, f := range sheet.ProjectSchema {
			val, isString := rec.StringField(f.Name)

			if f.Required {
				if err := validate.Var(utils.DereferencePtr(val), "required"); err != nil {
					report.add(row, MissingRequiredField, "%s is required", f.Name)
					continue
				}
			}

			if raw, bad := rec.Fallbacks[f.Name]; bad {
				report.add(row, InvalidDataType, "%s value %q is not a valid %s", f.Name, raw, kindName(f.Kind))
				continue
			}

			if isString && f.MaxLen > 0 && val != nil {
				if err := validate.Var(*val, fmt.Sprintf("max=%d", f.MaxLen)); err != nil {
					// Character count, matching both the max= rule and the
					// varchar ceiling; bytes would overstate non-ASCII input.
					report.add(row, FieldTooLong, "%s exceeds %d characters (got %d)", f.Name, f.MaxLen, utf8.RuneCountInString(*val))
				}
			}
		}

		// Line item defaults to 1 when blank; anything below 1 is an error.
		// (Non-numeric input was already reported via the fallback check.)
		if rec.LineItem != nil && *rec.LineItem < 1 {
			report.add(row, InvalidDataType, "%s must be a positive integer (got %d)", sheet.FieldLineItem, *rec.LineItem)
		}

		if requiresJustification(rec.Status) && strings.TrimSpace(utils.DereferencePtr(rec.Justification)) == "" {
			report.add(row, BusinessRuleViolation, "justification is required when status is %q", utils.DereferencePtr(rec.Status))
		}

		key := batchKey(rec)
		if first, dup := firstSeen[key]; dup {
			report.add(row, DuplicateEntry, "duplicate of row %d (entity %q, project %q, line item %d)",
				first, utils.DereferencePtr(rec.EntityId), utils.DereferencePtr(rec.ProjectId), rec.EffectiveLineItem())
		} else {
			firstSeen[key] = row
		}
	}

	return report
}

func requiresJustification(status *string) bool {
	if status == nil {
		return false
	}
	return justificationStatuses[strings.ToLower(strings.TrimSpace(*status))]
}

// batchKey builds the uniqueness key. The line item always participates; the
// blank-defaults-to-1 rule is applied first so blank and explicit 1 collide.
func batchKey(rec *sheet.ProjectRecord) string {
	return fmt.Sprintf("%s|%s|%d",
		strings.ToUpper(utils.DereferencePtr(rec.EntityId)),
		strings.ToUpper(utils.DereferencePtr(rec.ProjectId)),
		rec.EffectiveLineItem(),
	)
}

func kindName(k sheet.FieldKind) string {
	switch k {
	case sheet.FieldInt:
		return "whole number"
	case sheet.FieldDecimal:
		return "number"
	case sheet.FieldBool:
		return "yes/no value"
	case sheet.FieldDate:
		return "date"
	}
	return "value"
}
