package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/xlingo-lab/pplstat/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// countPrinter formats sample counts with digit grouping.
var countPrinter = message.NewPrinter(language.English)

var tableHeader = []string{"Group", "File", "N", "PPL mean", "PPL std", "PPL cv", "Loss mean", "Loss std", "Loss cv"}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// WriteTable writes rows as an aligned plain-text table.
func WriteTable(w io.Writer, rows []models.SummaryRow) error {
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, tableHeader)
	for _, r := range rows {
		rec := Record(r)
		line := make([]string, 0, len(tableHeader))
		line = append(line, rec[0], rec[1], countPrinter.Sprintf("%d", r.Count))
		line = append(line, rec[2:]...)
		cells = append(cells, line)
	}

	widths := make([]int, len(tableHeader))
	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var b strings.Builder
	for n, line := range cells {
		for i, c := range line {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(line)-1 {
				b.WriteString(c)
			} else {
				b.WriteString(padRight(c, widths[i]))
			}
		}
		b.WriteString("\n")
		if n == 0 {
			total := 0
			for _, wd := range widths {
				total += wd
			}
			b.WriteString(strings.Repeat("-", total+2*(len(widths)-1)))
			b.WriteString("\n")
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	return nil
}
