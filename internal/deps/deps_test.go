package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Binary{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary", Purpose: "testing"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" || results[0].Path != present {
		t.Fatalf("expected first binary to resolve to %s, got %#v", present, results[0])
	}
	if results[1].Available || !strings.Contains(results[1].Detail, "testing") {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank binary status %#v", results[2])
	}
}

func TestEngineBinaries(t *testing.T) {
	bins := EngineBinaries("/opt/ffmpeg", "ffprobe")
	if len(bins) != 2 || bins[0].Command != "/opt/ffmpeg" || bins[1].Name != "FFprobe" {
		t.Fatalf("unexpected engine binaries %+v", bins)
	}
}

const encodersListing = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D ffv1                 FFmpeg video codec #1
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
`

func TestListsEncoder(t *testing.T) {
	out := []byte(encodersListing)
	if !listsEncoder(out, "ffv1") || !listsEncoder(out, "libx264") {
		t.Fatal("expected video encoders to be found")
	}
	if listsEncoder(out, "aac") {
		t.Fatal("audio encoder should not count")
	}
	if listsEncoder(out, "Video") {
		t.Fatal("legend lines should be skipped")
	}
}

func TestVersionAndHasEncoder(t *testing.T) {
	orig := commandContext
	commandContext = helperCommand
	t.Cleanup(func() { commandContext = orig })

	version, err := Version(context.Background(), "ffmpeg")
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != "ffmpeg version 7.1-test Copyright (c) 2000-2024" {
		t.Fatalf("unexpected version %q", version)
	}
	ok, err := HasEncoder(context.Background(), "ffmpeg", "ffv1")
	if err != nil || !ok {
		t.Fatalf("HasEncoder = %v, %v", ok, err)
	}
}

func helperCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	last := args[len(args)-1]
	switch last {
	case "-version":
		fmt.Println("ffmpeg version 7.1-test Copyright (c) 2000-2024")
		fmt.Println("built with gcc")
	case "-encoders":
		fmt.Print(encodersListing)
	default:
		os.Exit(2)
	}
	os.Exit(0)
}
