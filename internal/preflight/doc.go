// Package preflight provides readiness checks for the filesystem paths and
// external tools spotafy depends on.
//
// These checks run in two contexts:
//   - The import command calls RunAll before downloading anything so a
//     missing yt-dlp or an unwritable media directory fails fast.
//   - The status command renders the same results alongside catalog health.
package preflight
