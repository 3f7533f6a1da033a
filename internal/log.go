package internal

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Prefix creates a consistent prefix for all per-channel log messages.
//
// i and n are the zero-based ordinal and expected count.
func Prefix(i, n int, name string) string {
	return fmt.Sprintf(`[%d/%d] "%s" - `, i+1, n, TruncateRightWithSuffix(filepath.Base(name), 40, "..."))
}

// NewLogger returns a logger that writes to stderr with Prefix.
func NewLogger(i, n int, name string) *log.Logger {
	return log.New(os.Stderr, Prefix(i, n, name), log.LstdFlags|log.Lmsgprefix)
}

// TruncateRightWithSuffix keeps the first n runes of text and appends suffix only if truncation happens.
func TruncateRightWithSuffix(text string, n int, suffix string) string {
	rs := []rune(text)
	if len(rs) <= n {
		return text
	}

	return string(rs[:max(n, 0)]) + suffix
}
