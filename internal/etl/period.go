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
	"fmt"
	"strconv"
	"strings"

	"github.com/pgEdge/pgedge-econ/internal/schema"
)

// Year bounds accepted by the time_periods check.
const (
	MinYear = 1800
	MaxYear = 2200
)

// Period is a natural time_periods key. A zero Month means a yearly period.
type Period struct {
	Year  int
	Month int
}

// Yearly returns the yearly period of year.
func Yearly(year int) Period {
	return Period{Year: year}
}

// Monthly returns the monthly period (year, month).
func Monthly(year, month int) Period {
	return Period{Year: year, Month: month}
}

// IsYearly reports whether p has no month.
func (p Period) IsYearly() bool {
	return p.Month == 0
}

// Type returns the period_type column value.
func (p Period) Type() string {
	if p.IsYearly() {
		return schema.PeriodYearly
	}
	return schema.PeriodMonthly
}

// YearPeriod returns the yearly period containing p.
func (p Period) YearPeriod() Period {
	return Yearly(p.Year)
}

// monthArg is the month column value: NULL for yearly periods.
func (p Period) monthArg() any {
	if p.IsYearly() {
		return nil
	}
	return p.Month
}

func (p Period) String() string {
	if p.IsYearly() {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%d-%02d", p.Year, p.Month)
}

// ParseYear reads a four digit year from the start of s. Trailing text
// is ignored, so census labels like "2013 (38)" give 2013.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end != 4 {
		return 0, &RowError{Field: "year", Value: s, Reason: "not a four digit year"}
	}
	year, _ := strconv.Atoi(s[:end])
	if year < MinYear || year > MaxYear {
		return 0, &RowError{Field: "year", Value: s, Reason: "year out of range"}
	}
	return year, nil
}

// ParsePeriod combines a year and a BLS period code into a Period.
//
//	"", "A", "M13", "S03"  yearly (annual average)
//	"M01" .. "M12"         monthly
//	"S01", "S02"           first and second half, months 6 and 12
func ParsePeriod(year, code string) (Period, error) {
	y, err := ParseYear(year)
	if err != nil {
		return Period{}, err
	}

	c := strings.ToUpper(strings.TrimSpace(code))
	switch c {
	case "", "A", "M13", "S03":
		return Yearly(y), nil
	}

	if len(c) == 3 {
		n, err := strconv.Atoi(c[1:])
		if err == nil {
			switch c[0] {
			case 'M':
				if n >= 1 && n <= 12 {
					return Monthly(y, n), nil
				}
			case 'S':
				if n == 1 || n == 2 {
					return Monthly(y, n*6), nil
				}
			}
		}
	}
	return Period{}, &RowError{Field: "period", Value: code, Reason: "unknown period code"}
}
