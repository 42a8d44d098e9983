package etl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := "\ufeffseries_id  , Year,VALUE\n" +
		"A,2023,1.0\n" +
		"\n" +
		",,\n" +
		"B,2024\n" +
		"\"C\",2025,\"1,000\"\n"

	tbl, err := parseCSV("x.csv", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"series_id", "Year", "VALUE"}, tbl.header)
	require.Len(t, tbl.rows, 3)
	require.NoError(t, tbl.require("series_id", "year", "value"))

	assert.Equal(t, "A", tbl.get(tbl.rows[0], "series_id"))
	assert.Equal(t, 2, tbl.rows[0].line)

	// short row
	assert.Equal(t, "", tbl.get(tbl.rows[1], "value"))
	assert.Equal(t, 5, tbl.rows[1].line)

	assert.Equal(t, "1,000", tbl.get(tbl.rows[2], "Value"))

	err = tbl.require("series_id", "area_code", "item_code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "area_code, item_code")
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := parseCSV("empty.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestParseBase(t *testing.T) {
	assert.Equal(t, basePair{period: "1982-84", value: "100"}, parseBase("1982-84=100"))
	assert.Equal(t, basePair{period: "DECEMBER 1977", value: "100"}, parseBase(" DECEMBER 1977 = 100 "))
	assert.Equal(t, basePair{period: "1967"}, parseBase("1967"))
	assert.Equal(t, basePair{}, parseBase(""))
}
