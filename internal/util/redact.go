package util

import "fmt"

// DefaultLogMaxLen is the default maximum length for truncated log output (1KB)
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings before they are logged. Upstream webhook
// errors can echo whole HTML pages back at us.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is TruncateLog for []byte with DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}

// MaskToken keeps only the last 8 characters of an OAuth token for logging.
func MaskToken(t string) string {
	if t == "" {
		return ""
	}
	if len(t) < 16 {
		return "..."
	}
	return "..." + t[len(t)-8:]
}
