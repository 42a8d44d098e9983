//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Column limits of the schema. Measures are bounded by the narrowest
// NUMERIC column, NUMERIC(12,3).
const (
	measurePrecision = 12
	measureScale     = 3
	minExponent      = -30

	maxRegionName = 100
	maxItemCode   = 20
	maxItemName   = 200
	maxBasePeriod = 50
)

var maxMeasure = decimal.New(1, measurePrecision-measureScale)

// RowError describes an input row that was skipped. It is never fatal
// to a load.
type RowError struct {
	File   string
	Line   int
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	var b strings.Builder
	if e.File != "" {
		fmt.Fprintf(&b, "%s:%d: ", e.File, e.Line)
	}
	fmt.Fprintf(&b, "%s %q: %s", e.Field, e.Value, e.Reason)
	return b.String()
}

// IsRowError reports whether err marks a skippable row.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// withPosition stamps file and line on a RowError.
func withPosition(err error, file string, line int) error {
	var re *RowError
	if errors.As(err, &re) && re.File == "" {
		re.File = file
		re.Line = line
	}
	return err
}

// missing marks census footnote placeholders for unavailable values.
var missing = map[string]bool{
	"": true, "NA": true, "(NA)": true, "N/A": true, "(X)": true, "-": true, "NAN": true,
}

// cleanNumber strips thousands separators, quotes, currency signs and
// blanks.
func cleanNumber(raw string) string {
	return strings.NewReplacer(",", "", `"`, "", "$", "", " ", "").Replace(strings.TrimSpace(raw))
}

// ParseMeasure parses a required non-negative decimal.
func ParseMeasure(field, raw string) (decimal.Decimal, error) {
	s := cleanNumber(raw)
	if missing[strings.ToUpper(s)] {
		return decimal.Decimal{}, &RowError{Field: field, Value: raw, Reason: "missing value"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &RowError{Field: field, Value: raw, Reason: "not a number"}
	}
	if d.IsNegative() {
		return decimal.Decimal{}, &RowError{Field: field, Value: raw, Reason: "negative value"}
	}
	if !inRange(d) {
		return decimal.Decimal{}, &RowError{Field: field, Value: raw, Reason: "value out of range"}
	}
	return d, nil
}

// inRange reports whether d fits NUMERIC(12,3) once rounded. Extreme
// exponents are rejected before any rescaling.
func inRange(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < minExponent || exp > measurePrecision {
		return false
	}
	if !d.IsZero() && int64(d.NumDigits())+exp > measurePrecision-measureScale {
		return false
	}
	return d.Round(measureScale).LessThan(maxMeasure)
}

// checkLength rejects text longer than the column holding it.
func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return &RowError{
			Field:  field,
			Value:  value,
			Reason: fmt.Sprintf("longer than %d characters", max),
		}
	}
	return nil
}

// ParseOptionalMeasure is ParseMeasure where a blank or placeholder value
// gives NULL instead of an error.
func ParseOptionalMeasure(field, raw string) (decimal.NullDecimal, error) {
	if missing[strings.ToUpper(cleanNumber(raw))] {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseMeasure(field, raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// average accumulates values sharing one fact key.
type average struct {
	sum   decimal.Decimal
	count int64
}

func (a *average) add(d decimal.Decimal) {
	a.sum = a.sum.Add(d)
	a.count++
}

// value returns the mean rounded to the column scale.
func (a *average) value() decimal.Decimal {
	if a.count == 0 {
		return decimal.Zero
	}
	return a.sum.Div(decimal.NewFromInt(a.count)).Round(3)
}
