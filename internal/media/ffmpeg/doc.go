// Package ffmpeg implements the codec engine on top of ffmpeg and ffprobe
// processes.
//
// Encode streams raw frames to ffmpeg's stdin, Decode collects raw frames from
// its stdout, Probe asks ffprobe what a container actually holds, and Retag
// stream-copies a container to attach metadata. Every process is started
// through exec.CommandContext, waited on along every exit path, and reports
// its stderr on failure.
package ffmpeg
