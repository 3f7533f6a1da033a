// Package channels loads the list of channel names to write.
package channels

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrInvalidChannel is returned if a channel name cannot be used in a file name.
var ErrInvalidChannel = errors.New("invalid channel name")

// Load reads channel names from the named file, one per line.
//
// Blank lines and lines starting with "#" are skipped; surrounding whitespace (including "\r") is trimmed. Files
// ending in ".gz", ".xz", or ".zst" are decompressed transparently. Order and duplicates are preserved.
func Load(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf(`open channel file "%s" error: %w`, name, err)
	}
	defer f.Close()

	var r io.Reader
	switch ext := filepath.Ext(name); ext {
	case ".gz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader error: %w", err)
		}
		defer gr.Close()

		r = gr
	case ".xz":
		if r, err = xz.NewReader(f); err != nil {
			return nil, fmt.Errorf("create xz reader error: %w", err)
		}
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader error: %w", err)
		}
		defer zr.Close()

		r = zr
	default:
		r = f
	}

	return Parse(r)
}

// Parse reads channel names from r, one per line. See Load.
func Parse(r io.Reader) (names []string, err error) {
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err = Validate(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		names = append(names, line)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read channel file error: %w", err)
	}

	return names, nil
}

// Validate returns ErrInvalidChannel if the name contains path separators or control characters.
func Validate(name string) error {
	for _, r := range name {
		switch {
		case r == '/', r == '\\':
			return fmt.Errorf(`%w: "%s" contains path separator`, ErrInvalidChannel, name)
		case unicode.IsControl(r):
			return fmt.Errorf(`%w: "%s" contains control character %U`, ErrInvalidChannel, name, r)
		}
	}

	if name == "." || name == ".." {
		return fmt.Errorf(`%w: "%s"`, ErrInvalidChannel, name)
	}

	return nil
}
