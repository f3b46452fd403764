package reporting

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/xlingo-lab/pplstat/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Meta describes the run a Markdown or HTML report belongs to.
type Meta struct {
	Title     string
	RunID     string
	Generated time.Time
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderMarkdown returns rows as a GitHub-flavored Markdown document.
func RenderMarkdown(rows []models.SummaryRow, meta Meta) string {
	var b strings.Builder

	title := meta.Title
	if title == "" {
		title = "Perplexity and loss statistics"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if meta.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`", meta.RunID)
		if !meta.Generated.IsZero() {
			fmt.Fprintf(&b, ", generated %s", meta.Generated.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n\n")
	}

	b.WriteString("| " + strings.Join(Header, " | ") + " | count |\n")
	b.WriteString(strings.Repeat("|---", len(Header)+1) + "|\n")
	for _, r := range rows {
		rec := Record(r)
		for i := range rec {
			rec[i] = escapeCell(rec[i])
		}
		fmt.Fprintf(&b, "| %s | %d |\n", strings.Join(rec, " | "), r.Count)
	}

	if len(rows) > 0 {
		b.WriteString("\n## Dispersion\n\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "- **%s**: perplexity %s; loss %s\n",
				r.Key, strings.ToLower(InterpretCV(r.Perplexity.CV)), strings.ToLower(InterpretCV(r.Loss.CV)))
		}
	}
	return b.String()
}

// WriteMarkdown writes RenderMarkdown output to w.
func WriteMarkdown(w io.Writer, rows []models.SummaryRow, meta Meta) error {
	_, err := io.WriteString(w, RenderMarkdown(rows, meta))
	return err
}

// WriteHTML renders the Markdown report to a standalone HTML page.
func WriteHTML(w io.Writer, rows []models.SummaryRow, meta Meta) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(rows, meta)), &body); err != nil {
		return fmt.Errorf("html: rendering markdown: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = "Perplexity and loss statistics"
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title), body.String())
	return err
}
