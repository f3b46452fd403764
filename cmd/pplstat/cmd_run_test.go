package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlingo-lab/pplstat/internal/aggregate"
	"github.com/xlingo-lab/pplstat/internal/cache"
	"github.com/xlingo-lab/pplstat/internal/dataset"
)

// runProject lays out a project with two scored-result folders and a config.
func runProject(t *testing.T, config string) string {
	t.Helper()
	root := t.TempDir()
	writeScored(t, filepath.Join(root, "data", "llama_results"), "prompt_en_response_en_perplexity.json", [2]float64{4, 1.4}, [2]float64{6, 1.8})
	writeScored(t, filepath.Join(root, "data", "qwen_results"), "prompt_zh_response_zh_perplexity.json", [2]float64{3, 1.1}, [2]float64{5, 1.6})
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pplstat.yaml"), []byte(config), 0o644))
	return root
}

func TestRunCommand_WritesConfiguredReports(t *testing.T) {
	root := runProject(t, `
inputs:
  - path: data/llama_results
  - path: data/qwen_results
    csv: stats/qwen.csv
output:
  dir: out/
  formats: [csv, json, markdown]
`)

	out, err := runCommand(t, newRunCommand(), "--config", filepath.Join(root, ".pplstat.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "2 input(s), 6 report(s)")

	for _, p := range []string{
		"out/llama_perplexity_loss_statistics.csv",
		"out/llama_perplexity_loss_statistics.json",
		"out/llama_perplexity_loss_statistics.md",
		"stats/qwen.csv",
		"out/qwen_perplexity_loss_statistics.json",
		"out/qwen_perplexity_loss_statistics.md",
	} {
		assert.FileExists(t, filepath.Join(root, p))
	}

	data, err := os.ReadFile(filepath.Join(root, "out", "llama_perplexity_loss_statistics.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, csvHeader, lines[0])
	assert.Equal(t, "llama_results,prompt_en_response_en_perplexity.json,5.0,1.4142,28.28%,1.6,0.2828,17.68%", lines[1])

	var rows []map[string]any
	data, err = os.ReadFile(filepath.Join(root, "out", "qwen_perplexity_loss_statistics.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 4.0, rows[0]["average_perplexity"])

	md, err := os.ReadFile(filepath.Join(root, "out", "llama_perplexity_loss_statistics.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Perplexity and loss statistics: llama")
	assert.Contains(t, string(md), "Run `")
}

func TestRunCommand_FlagOverrides(t *testing.T) {
	root := runProject(t, `
inputs:
  - path: data/llama_results
aggregate:
  std_dev: population
`)
	outDir := filepath.Join(t.TempDir(), "override")

	_, err := runCommand(t, newRunCommand(), "--config", filepath.Join(root, ".pplstat.yaml"),
		"--out-dir", outDir, "--format", "csv")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "llama_perplexity_loss_statistics.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ",5.0,1.0,20.0%,")
	assert.NoFileExists(t, filepath.Join(outDir, "llama_perplexity_loss_statistics.json"))
}

func TestRunCommand_NoInputs(t *testing.T) {
	root := runProject(t, "output:\n  dir: out/\n")

	_, err := runCommand(t, newRunCommand(), "--config", filepath.Join(root, ".pplstat.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no inputs configured")
}

func TestRunCommand_BadInput(t *testing.T) {
	root := runProject(t, "inputs:\n  - path: data/missing_results\n")

	_, err := runCommand(t, newRunCommand(), "--config", filepath.Join(root, ".pplstat.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input data/missing_results")
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	root := runProject(t, "inputs:\n  - name: nameless\n")

	_, err := runCommand(t, newRunCommand(), "--config", filepath.Join(root, ".pplstat.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is invalid")
}

func TestRunCommand_Cache(t *testing.T) {
	root := runProject(t, "inputs:\n  - path: data/llama_results\noutput:\n  formats: [csv]\n")
	cacheDir := filepath.Join(t.TempDir(), "cache")
	args := []string{"--config", filepath.Join(root, ".pplstat.yaml"), "--cache-dir", cacheDir}

	_, err := runCommand(t, newRunCommand(), args...)
	require.NoError(t, err)
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	report := filepath.Join(root, "results", "llama_perplexity_loss_statistics.csv")
	first, err := os.ReadFile(report)
	require.NoError(t, err)
	require.NoError(t, os.Remove(report))

	_, err = runCommand(t, newRunCommand(), args...)
	require.NoError(t, err)
	second, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	entries, err = os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "unchanged input reuses the entry")

	_, err = runCommand(t, newRunCommand(), append(args, "--limit", "1")...)
	require.NoError(t, err)
	entries, err = os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "a different limit is a new entry")

	_, err = runCommand(t, newRunCommand(), append(args, "--clear-cache")...)
	require.NoError(t, err)
	entries, err = os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunCommand_CacheHitKeepsWarnings(t *testing.T) {
	root := runProject(t, "inputs:\n  - path: data/gemma_results\noutput:\n  formats: [csv]\n")
	writeScored(t, filepath.Join(root, "data", "gemma_results"), "prompt_en_response_zh_perplexity.json", [2]float64{7, 1.9})
	args := []string{"--config", filepath.Join(root, ".pplstat.yaml"), "--cache-dir", filepath.Join(t.TempDir(), "cache")}

	warnings := func(buf *bytes.Buffer) []string {
		var out []string
		for _, rec := range logRecords(t, buf, "statistic undefined") {
			out = append(out, fmt.Sprintf("%v|%v|%v|%v", rec["condition"], rec["metric"], rec["statistic"], rec["reason"]))
		}
		return out
	}

	fresh := captureLogs(t)
	_, err := runCommand(t, newRunCommand(), args...)
	require.NoError(t, err)
	want := warnings(fresh)
	require.Len(t, want, 4)
	assert.Equal(t, "gemma/en/zh|perplexity|std_dev|group has a single sample", want[0])
	assert.Empty(t, logRecords(t, fresh, "cache hit"))

	cached := captureLogs(t)
	_, err = runCommand(t, newRunCommand(), args...)
	require.NoError(t, err)
	assert.Len(t, logRecords(t, cached, "cache hit"), 1)
	assert.Equal(t, want, warnings(cached))
}

func TestCacheKey_DisabledCache(t *testing.T) {
	root := runProject(t, "inputs: []\n")
	path := filepath.Join(root, "data", "llama_results")
	ds := dataset.Options{Limit: 1000}

	assert.Empty(t, cacheKey(cache.New(""), path, ds, aggregate.DefaultOptions()))
	assert.Len(t, cacheKey(cache.New(t.TempDir()), path, ds, aggregate.DefaultOptions()), 64)
	assert.Empty(t, cacheKey(cache.New(t.TempDir()), filepath.Join(root, "missing_results"), ds, aggregate.DefaultOptions()))
}

func TestProgressLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, progressLevel(true))
	assert.Equal(t, slog.LevelInfo, progressLevel(false))
}
