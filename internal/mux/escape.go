package mux

import (
	"runtime"
	"strings"
)

var hostOS = runtime.GOOS

// EscapeFilterPath escapes a file path for use as a filter-graph option
// value. Colons separate filter options and backslashes start escapes, so both
// must be escaped. Windows paths are converted to forward slashes first since
// their backslashes are separators, not literal characters.
func EscapeFilterPath(path string) string {
	if hostOS == "windows" {
		path = strings.ReplaceAll(path, `\`, "/")
	} else {
		path = strings.ReplaceAll(path, `\`, `\\`)
	}
	path = strings.ReplaceAll(path, ":", `\:`)
	path = strings.ReplaceAll(path, "'", `\'`)
	return path
}
