// Package ffprobe wraps the ffprobe binary.
//
// Duration returns the rounded length of an audio file in seconds and never
// fails: any problem yields 0 so callers can fall back to catalog metadata.
// Inspect decodes the full JSON report (streams and container format) for
// diagnostics such as `spotafy songs show --probe`.
package ffprobe
