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

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// writeScored writes a scored-result file with one record per perplexity/loss pair.
func writeScored(t *testing.T, dir, name string, pairs ...[2]float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	var b strings.Builder
	b.WriteString("[")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, `{"line_number": %d, "prompt": "p", "response": "r", "loss": %g, "perplexity": %g}`, i+1, p[1], p[0])
	}
	b.WriteString("]")
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

// fixture creates llama_results with an en/en and a zh/zh condition and an
// empty config file, returning the folder and the config path.
func fixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "llama_results")
	writeScored(t, dir, "prompt_en_response_en_perplexity.json", [2]float64{4, 1.4}, [2]float64{6, 1.8})
	writeScored(t, dir, "prompt_zh_response_zh_perplexity.json", [2]float64{8, 2.0}, [2]float64{10, 2.3})
	cfg := filepath.Join(root, "empty.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))
	return dir, cfg
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// captureLogs routes the default slog logger to a JSON buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// logRecords decodes the records in buf with the given message.
func logRecords(t *testing.T, buf *bytes.Buffer, msg string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		if rec["msg"] == msg {
			out = append(out, rec)
		}
	}
	return out
}
