package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Binary names an external program the codec engine shells out to.
type Binary struct {
	Name    string
	Command string
	Purpose string
}

// Status reports whether a Binary resolved on PATH.
type Status struct {
	Binary
	Path      string
	Available bool
	Detail    string
}

// EngineBinaries lists the programs backing the ffmpeg engine.
func EngineBinaries(ffmpeg, ffprobe string) []Binary {
	return []Binary{
		{Name: "FFmpeg", Command: ffmpeg, Purpose: "encodes raw frames and decodes containers"},
		{Name: "FFprobe", Command: ffprobe, Purpose: "reports negotiated pixel formats and tags"},
	}
}

// CheckBinaries resolves each binary and records where it was found.
func CheckBinaries(binaries []Binary) []Status {
	results := make([]Status, 0, len(binaries))
	for _, bin := range binaries {
		bin.Command = strings.TrimSpace(bin.Command)
		status := Status{Binary: bin}
		switch path, err := exec.LookPath(bin.Command); {
		case bin.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found (%s)", bin.Command, bin.Purpose)
		default:
			status.Path = path
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
