package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Version returns the first line of `<binary> -version`, e.g.
// "ffmpeg version 7.1 Copyright ...".
func Version(ctx context.Context, binary string) (string, error) {
	out, err := commandContext(ctx, binary, "-hide_banner", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s -version: empty output", binary)
	}
	return line, nil
}

// HasEncoder reports whether ffmpeg lists a video encoder with the given name.
func HasEncoder(ctx context.Context, ffmpeg, encoder string) (bool, error) {
	out, err := commandContext(ctx, ffmpeg, "-hide_banner", "-encoders").Output()
	if err != nil {
		return false, fmt.Errorf("%s -encoders: %w", ffmpeg, err)
	}
	return listsEncoder(out, encoder), nil
}

// listsEncoder scans `ffmpeg -encoders` output. Entry lines look like
// " V....D ffv1   FFmpeg video codec #1"; the legend above the "------"
// separator is skipped.
func listsEncoder(out []byte, encoder string) bool {
	encoder = strings.TrimSpace(encoder)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	listing := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !listing {
			listing = strings.HasPrefix(line, "------")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "V") {
			continue
		}
		if fields[1] == encoder {
			return true
		}
	}
	return false
}
