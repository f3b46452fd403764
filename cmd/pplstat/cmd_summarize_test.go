package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlingo-lab/pplstat/internal/models"
)

const csvHeader = "input_folder,file,average_perplexity,std_dev_perplexity,cv_perplexity,average_loss,std_dev_loss,cv_loss"

func TestSummarizeCommand_RequiresInput(t *testing.T) {
	_, err := runCommand(t, newSummarizeCommand())
	assert.Error(t, err)
}

func TestSummarizeCommand_DefaultCSV(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, csvHeader, lines[0])
	assert.Equal(t, "llama_results,prompt_en_response_en_perplexity.json,5.0,1.4142,28.28%,1.6,0.2828,17.68%", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "llama_results,prompt_zh_response_zh_perplexity.json,9.0,1.4142,"))
}

func TestSummarizeCommand_PopulationOption(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg, "--option", "std_dev=population")
	require.NoError(t, err)
	assert.Contains(t, out, "llama_results,prompt_en_response_en_perplexity.json,5.0,1.0,20.0%,1.6,0.2,12.5%")
}

func TestSummarizeCommand_ConfigOptions(t *testing.T) {
	dir, _ := fixture(t)
	cfg := filepath.Join(t.TempDir(), "pplstat.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("aggregate:\n  std_dev: population\n"), 0o644))

	out, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, ",5.0,1.0,20.0%,")
}

func TestSummarizeCommand_LimitSingleSample(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "llama_results,prompt_en_response_en_perplexity.json,4.0,n/a,n/a,1.4,n/a,n/a")

	_, err = runCommand(t, newSummarizeCommand(), dir, "--config", cfg, "--limit", "-1")
	assert.Error(t, err)
}

func TestSummarizeCommand_KeyOrder(t *testing.T) {
	root := t.TempDir()
	flat := filepath.Join(root, "samples.csv")
	require.NoError(t, os.WriteFile(flat, []byte("model,prompt_language,response_language,perplexity,loss\n"+
		"qwen,zh,zh,3,1\nllama,en,en,4,1.2\n"), 0o644))
	cfg := filepath.Join(root, "empty.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))

	out, err := runCommand(t, newSummarizeCommand(), flat, "--config", cfg, "--format", "json", "--order", "key", "--option", "single_sample=zero")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "llama", rows[0]["input_folder"])
	assert.Equal(t, "qwen", rows[1]["input_folder"])
	assert.Equal(t, 0.0, rows[0]["std_dev_perplexity"])
}

func TestSummarizeCommand_OutFile(t *testing.T) {
	dir, cfg := fixture(t)
	outPath := filepath.Join(t.TempDir(), "reports", "llama.md")

	out, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg, "--out", outPath, "--title", "Llama")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 condition(s)")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Llama")
	assert.Contains(t, string(data), "| llama_results | prompt_en_response_en_perplexity.json | 5.0 |")
}

func TestSummarizeCommand_Interpret(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg, "--format", "table", "--interpret")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Interpretation ===")
	assert.Contains(t, out, "llama/en/en (2 samples)")
}

func TestSummarizeCommand_InvalidFormat(t *testing.T) {
	dir, cfg := fixture(t)

	_, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestSummarizeCommand_DataError(t *testing.T) {
	root := t.TempDir()
	flat := filepath.Join(root, "samples.csv")
	require.NoError(t, os.WriteFile(flat, []byte("model,prompt_language,response_language,perplexity,loss\n"+
		"llama,en,en,4,1.2\nllama,en,en,Inf,1.3\n"), 0o644))
	cfg := filepath.Join(root, "empty.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))

	out, err := runCommand(t, newSummarizeCommand(), flat, "--config", cfg)
	require.Error(t, err)
	assert.Empty(t, out)

	var de *models.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "perplexity", de.Field)
	assert.Equal(t, 2, de.Sample.Index)
}

func TestSummarizeCommand_UnknownOption(t *testing.T) {
	dir, cfg := fixture(t)

	_, err := runCommand(t, newSummarizeCommand(), dir, "--config", cfg, "--option", "median=yes")
	assert.Error(t, err)
}

func TestSummarizeCommand_FlatCSVLimitPerCondition(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	b.WriteString("model,prompt_language,response_language,perplexity,loss\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "llama,en,en,%d,1.6\n", 4+i%3)
	}
	for i := 0; i < 5; i++ {
		b.WriteString("qwen,zh,zh,3,1.1\n")
	}
	flat := filepath.Join(root, "samples.csv")
	require.NoError(t, os.WriteFile(flat, []byte(b.String()), 0o644))
	cfg := filepath.Join(root, "empty.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))

	out, err := runCommand(t, newSummarizeCommand(), flat, "--config", cfg, "--format", "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "llama", rows[0]["input_folder"])
	assert.Equal(t, "qwen", rows[1]["input_folder"])
	assert.Equal(t, 3.0, rows[1]["average_perplexity"])
}
