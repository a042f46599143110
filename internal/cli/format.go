// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"strconv"
	"strings"
)

// Glyphs used for boolean cells.
const (
	GlyphTrue  = "✓"
	GlyphFalse = "✗"
)

// FormatBool renders a boolean as a checkmark or a cross.
func FormatBool(v bool) string {
	if v {
		return GlyphTrue
	}
	return GlyphFalse
}

// FormatFloat formats a float with the minimum digits needed.
// e.g., 0.5 -> "0.5", 1.2346 -> "1.2346", 2 -> "2"
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatSeconds formats a duration in seconds with an "s" suffix.
func FormatSeconds(secs float64) string {
	return FormatFloat(secs) + "s"
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatBytes formats a byte size with binary suffixes.
// e.g., 512 -> "512 B", 2048 -> "2.0 KiB"
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
