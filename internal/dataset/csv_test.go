package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplesHeader = "model,prompt_language,response_language,perplexity,loss\n"

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadCSV(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		wantRows int
		wantCols int
		wantErr  string
	}{
		{
			name:     "three samples",
			csv:      samplesHeader + "llama,en,en,4.0,1.38\nllama,en,zh,6.5,1.87\nqwen,zh,zh,3.2,1.16\n",
			wantRows: 3,
			wantCols: 5,
		},
		{
			name:     "spaces after commas are trimmed",
			csv:      "model, perplexity\nllama, 4.0\n",
			wantRows: 1,
			wantCols: 2,
		},
		{
			name:     "header only",
			csv:      samplesHeader,
			wantRows: 0,
		},
		{
			name:    "empty file",
			csv:     "",
			wantErr: "no header row",
		},
		{
			name:    "mismatched column count",
			csv:     "model,perplexity\nllama,4.0\nqwen\n",
			wantErr: "wrong number of fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, t.TempDir(), "samples.csv", tt.csv)

			rows, err := LoadCSV(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
			if tt.wantRows > 0 {
				assert.Len(t, rows[0], tt.wantCols)
			}
		})
	}
}

func TestLoadCSV_Values(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "samples.csv", samplesHeader+"llama,en,zh,6.5,1.87\nqwen,zh,zh,3.2,1.16\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{
		"model": "llama", "prompt_language": "en", "response_language": "zh",
		"perplexity": "6.5", "loss": "1.87",
	}, rows[0])
	assert.Equal(t, "qwen", rows[1][ColumnModel])
	assert.Equal(t, "1.16", rows[1][ColumnLoss])
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: open")
}

func TestLoadCSVTable(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		path := writeCSV(t, t.TempDir(), "samples.csv", samplesHeader)

		table, err := LoadCSVTable(path)
		require.NoError(t, err)
		assert.Equal(t, RequiredColumns, table.Headers)
		assert.Empty(t, table.Rows)
	})

	t.Run("rows keyed by header", func(t *testing.T) {
		path := writeCSV(t, t.TempDir(), "samples.csv", samplesHeader+
			"llama,en,en,4.0,1.38\nllama,en,en,4.5,1.50\nllama,en,en,5.0,1.61\n")

		table, err := LoadCSVTable(path)
		require.NoError(t, err)
		require.Len(t, table.Rows, 3)
		assert.Equal(t, "4.5", table.Rows[1][ColumnPerplexity])
		assert.Equal(t, "1.61", table.Rows[2][ColumnLoss])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCSVTable(filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "csv: open")
	})
}
