package reporting

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/models"
)

// Format is an output format for summary rows.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatTable, FormatMarkdown, FormatHTML}

// ParseFormat accepts a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q: must be one of csv, json, table, markdown, html", s)
}

// Ext returns the file extension used for f.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatTable:
		return ".txt"
	}
	return "." + string(f)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, true
	case ".json":
		return FormatJSON, true
	case ".md":
		return FormatMarkdown, true
	case ".html", ".htm":
		return FormatHTML, true
	case ".txt":
		return FormatTable, true
	}
	return "", false
}

// Write renders rows to w in format f.
func Write(w io.Writer, f Format, rows []models.SummaryRow, meta Meta) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	case FormatTable:
		return WriteTable(w, rows)
	case FormatMarkdown:
		return WriteMarkdown(w, rows, meta)
	case FormatHTML:
		return WriteHTML(w, rows, meta)
	}
	return fmt.Errorf("unsupported format %q", f)
}
