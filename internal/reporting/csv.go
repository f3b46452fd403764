package reporting

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xlingo-lab/pplstat/internal/models"
)

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []models.SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("csv: writing header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return fmt.Errorf("csv: writing %s: %w", r.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
