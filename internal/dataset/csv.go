package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// Table is a parsed CSV file: its header row and the data rows keyed by it.
type Table struct {
	Headers []string
	Rows    []Row
}

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names). Files ending in .gz
// or .zst are decompressed.
func LoadCSV(path string) ([]Row, error) {
	t, err := LoadCSVTable(path)
	if err != nil {
		return nil, err
	}
	return t.Rows, nil
}

// LoadCSVTable is like LoadCSV but also returns the header row, so callers
// can check columns of a file that has no data rows.
func LoadCSVTable(path string) (*Table, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer rc.Close() //nolint:errcheck

	t, err := readCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", path, err)
	}
	return t, nil
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty (no header row)")
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}
