// Package security holds helpers for turning table and column identifiers
// into names that are safe to write to disk.
package security

import "strings"

// maxFilenameLen bounds the sanitised name.
const maxFilenameLen = 128

// SanitizeFilename maps s onto ASCII letters, digits, '.', '_' and '-'.
// Runs of other characters collapse to one '_', leading and trailing '.'
// and '_' are trimmed, and an empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			underscore = false
		case !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	if out := strings.Trim(b.String(), "._"); out != "" {
		return out
	}
	return "unknown"
}

// PlotFilename names the image for one column of one table,
// e.g. "singletrial_singlechannel_earlythetadelta.png".
func PlotFilename(tableName, column, ext string) string {
	return SanitizeFilename(tableName) + "_" + SanitizeFilename(column) + "." + ext
}
