package main

import (
	"strings"
	"testing"
	"time"

	"videotable/internal/pipeline"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("FFmpeg", statusError, "binary \"ffmpeg\" not found", false)
	if !strings.Contains(line, "FFmpeg:") || !strings.Contains(line, "[ERROR]") {
		t.Fatalf("unexpected line %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("plain line should carry no ANSI codes: %q", line)
	}
	if colored := renderStatusLine("FFmpeg", statusOK, "", true); !strings.HasPrefix(colored, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", colored)
	}
}

func TestJobStatusLabel(t *testing.T) {
	cases := map[string]string{"succeeded": "Succeeded", "skipped": "Skipped", "": "-"}
	for in, want := range cases {
		if got := jobStatusLabel(in); got != want {
			t.Fatalf("jobStatusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderStatsAddsTotals(t *testing.T) {
	stats := []pipeline.Stats{
		{Name: "a", Status: "succeeded", Container: "/x/a/a.mkv", OriginalBytes: 2048, CompressedBytes: 1024, CompressionRatio: 2, WriteDuration: 20 * time.Millisecond},
		{Name: "b", Status: "skipped", ErrorLabel: "invalid_range"},
	}
	out := renderStats(stats, false)
	for _, want := range []string{"a.mkv", "2.00x", "Skipped (invalid_range)", "Total", "2.0 KiB", "1.0 KiB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if single := renderStats(stats[:1], false); strings.Contains(single, "Total") {
		t.Fatalf("single-row table should have no footer:\n%s", single)
	}
}

func TestFormatters(t *testing.T) {
	if got := formatBytes(0); got != "-" {
		t.Fatalf("formatBytes(0) = %q", got)
	}
	if got := formatBytes(1536); got != "1.5 KiB" {
		t.Fatalf("formatBytes(1536) = %q", got)
	}
	if got := formatRatio(3.456); got != "3.46x" {
		t.Fatalf("formatRatio = %q", got)
	}
}

func TestWriteJSONEmitsEmptyArrayForNilSlice(t *testing.T) {
	cmd := newRootCommand()
	var buf strings.Builder
	cmd.SetOut(&buf)
	var entries []statusEntry
	if err := writeJSON(cmd, entries); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected [], got %q", buf.String())
	}
}
