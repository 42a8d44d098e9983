package etl

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr string
	}{
		{"1.25", "1.25", ""},
		{" 120,500.5 ", "120500.5", ""},
		{`"98,000"`, "98000", ""},
		{"$3.99", "3.99", ""},
		{"0", "0", ""},
		{"-5", "", "negative value"},
		{"not-a-price", "", "not a number"},
		{"", "", "missing value"},
		{"(NA)", "", "missing value"},
		{"999999999.999", "999999999.999", ""},
		{"999999999.9999", "", "value out of range"},
		{"1e400", "", "value out of range"},
		{"1e999999999", "", "value out of range"},
		{"1e-999999999", "", "value out of range"},
		{"1.5e3", "1500", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseMeasure("price", tt.raw)
			if tt.wantErr != "" {
				var re *RowError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, tt.wantErr, re.Reason)
				assert.Equal(t, "price", re.Field)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseOptionalMeasure(t *testing.T) {
	d, err := ParseOptionalMeasure("x", "N/A")
	require.NoError(t, err)
	assert.False(t, d.Valid)

	d, err = ParseOptionalMeasure("x", "1,000")
	require.NoError(t, err)
	assert.True(t, d.Valid)
	assert.Equal(t, "1000", d.Decimal.String())

	_, err = ParseOptionalMeasure("x", "abc")
	assert.True(t, IsRowError(err))
}

func TestCheckLength(t *testing.T) {
	require.NoError(t, checkLength("item_code", "SAF11", maxItemCode))
	require.NoError(t, checkLength("region", strings.Repeat("é", maxRegionName), maxRegionName))

	err := checkLength("region", strings.Repeat("a", maxRegionName+1), maxRegionName)
	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "region", re.Field)
	assert.Equal(t, "longer than 100 characters", re.Reason)
}

func TestAverage(t *testing.T) {
	var a average
	assert.True(t, a.value().IsZero())

	a.add(decimal.RequireFromString("0.5"))
	a.add(decimal.RequireFromString("0.52"))
	assert.Equal(t, "0.51", a.value().String())

	a.add(decimal.RequireFromString("1"))
	assert.Equal(t, "0.673", a.value().String())
}

func TestRowErrorMessage(t *testing.T) {
	err := withPosition(&RowError{Field: "value", Value: "x", Reason: "not a number"}, "cpi.csv", 7)
	assert.Equal(t, `cpi.csv:7: value "x": not a number`, err.Error())

	plain := errors.New("boom")
	assert.Same(t, plain, withPosition(plain, "f", 1))
	assert.False(t, IsRowError(plain))
}
