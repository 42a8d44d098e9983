package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// csvTable is a whole CSV file held in memory with a case-insensitive
// header index. Source files are small enough to read in one go.
type csvTable struct {
	name   string
	header []string
	index  map[string]int
	rows   []csvRow
}

type csvRow struct {
	line   int
	fields []string
}

// readCSV reads the file at path.
func readCSV(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseCSV(filepath.Base(path), f)
}

func parseCSV(name string, r io.Reader) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	t := &csvTable{
		name:   name,
		header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.header[i] = h
		key := strings.ToLower(h)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		t.rows = append(t.rows, csvRow{line: line, fields: rec})
	}
	return t, nil
}

// require fails when any of cols is absent from the header.
func (t *csvTable) require(cols ...string) error {
	var absent []string
	for _, c := range cols {
		if !t.has(c) {
			absent = append(absent, c)
		}
	}
	if len(absent) > 0 {
		return fmt.Errorf("%s: missing columns %s", t.name, strings.Join(absent, ", "))
	}
	return nil
}

func (t *csvTable) has(col string) bool {
	_, ok := t.index[strings.ToLower(col)]
	return ok
}

// get returns the trimmed value of col, or "" when the row is short.
func (t *csvTable) get(row csvRow, col string) string {
	i, ok := t.index[strings.ToLower(col)]
	if !ok || i >= len(row.fields) {
		return ""
	}
	return strings.TrimSpace(row.fields[i])
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
