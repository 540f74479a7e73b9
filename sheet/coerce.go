package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"github.com/shopspring/decimal"
)

// CoercedKind tags the outcome of coercing one raw cell to a declared kind.
type CoercedKind int

const (
	// CoercedNull: the cell was blank, or the value could not be converted.
	CoercedNull CoercedKind = iota
	// CoercedTyped: the cell converted cleanly to the declared kind.
	CoercedTyped
	// CoercedFallback: the cell held something convertible only to text.
	// Callers decide per field whether that is acceptable; fields with a
	// strict schema kind must treat it as null (and validation reports the
	// bad input later).
	CoercedFallback
)

// Coerced is the tagged result of a single cell coercion. Exactly one of the
// typed accessors is meaningful, per the Kind.
type Coerced struct {
	Kind   CoercedKind
	Str    *string
	Int    *int
	Dec    *decimal.Decimal
	Bool   *bool
	Time   *time.Time
	Raw    string // original text, kept for Fallback reporting
	Reason string // why the value fell back or nulled out
}

// Coerce converts one raw cell value to the declared field kind with the
// surface's lenient semantics: blank means null, unparseable scalar input
// means null (the validation engine reports it, extraction never errors).
func Coerce(raw any, kind FieldKind) Coerced {
	text, blank := rawText(raw)
	if blank {
		return Coerced{Kind: CoercedNull}
	}

	switch kind {
	case FieldString:
		s := text
		return Coerced{Kind: CoercedTyped, Str: &s, Raw: text}
	case FieldInt:
		if n, ok := parseInt(raw, text); ok {
			return Coerced{Kind: CoercedTyped, Int: &n, Raw: text}
		}
		return Coerced{Kind: CoercedFallback, Raw: text, Reason: "not a whole number"}
	case FieldDecimal:
		if d, ok := parseDec(raw, text); ok {
			return Coerced{Kind: CoercedTyped, Dec: &d, Raw: text}
		}
		return Coerced{Kind: CoercedFallback, Raw: text, Reason: "not numeric"}
	case FieldBool:
		if b, ok := parseBool(raw, text); ok {
			return Coerced{Kind: CoercedTyped, Bool: &b, Raw: text}
		}
		return Coerced{Kind: CoercedFallback, Raw: text, Reason: "not a recognised boolean"}
	case FieldDate:
		if t, ok := parseDate(raw, text); ok {
			return Coerced{Kind: CoercedTyped, Time: &t, Raw: text}
		}
		return Coerced{Kind: CoercedFallback, Raw: text, Reason: "not date-like"}
	}
	return Coerced{Kind: CoercedNull, Reason: fmt.Sprintf("unknown field kind %d", kind)}
}

// rawText renders the cell as trimmed text; blank reports a cell the
// extractor must treat as NULL.
func rawText(raw any) (text string, blank bool) {
	switch v := raw.(type) {
	case nil:
		return "", true
	case string:
		s := strings.TrimSpace(v)
		return s, s == ""
	case time.Time:
		return v.Format("2006-01-02"), false
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		return s, s == ""
	}
}

func parseInt(raw any, text string) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, true
	}
	// Surfaces frequently hand over integers formatted as "3.0".
	if f, err := strconv.ParseFloat(text, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

func parseDec(raw any, text string) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case decimal.Decimal:
		return v, true
	}
	// Tolerate thousands separators typed into cost cells.
	cleaned := strings.ReplaceAll(text, ",", "")
	if d, err := utils.ParseDecimal(cleaned); err == nil {
		return d, true
	}
	return decimal.Zero, false
}

func parseBool(raw any, text string) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	}
	switch strings.ToUpper(text) {
	case "TRUE", "1", "Y", "YES", "T":
		return true, true
	case "FALSE", "0", "N", "NO", "F":
		return false, true
	}
	// Any other nonzero number reads as true, zero as false.
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f != 0, true
	}
	return false, false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

func parseDate(raw any, text string) (time.Time, bool) {
	if t, ok := raw.(time.Time); ok {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
