// Package arena provides a pre-sized, owned byte buffer with a write cursor and bounds-checked writes.
package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOverflow is returned if a write would go past the end of the arena.
var ErrOverflow = errors.New("arena overflow")

// ErrIncomplete is returned by Bytes if the arena has not been completely filled.
var ErrIncomplete = errors.New("arena incomplete")

// Arena is a fixed-size buffer that is filled sequentially, little-endian throughout.
//
// The zero value is an arena of size zero. An Arena is not safe for concurrent use.
type Arena struct {
	buf []byte
	off int
}

// New allocates a new arena of exactly n bytes.
func New(n int) *Arena {
	return &Arena{buf: make([]byte, n)}
}

// Remaining returns the number of bytes that can still be written.
func (a *Arena) Remaining() int {
	return len(a.buf) - a.off
}

// next reserves the next n bytes and advances the cursor.
func (a *Arena) next(n int) ([]byte, error) {
	if n < 0 || n > a.Remaining() {
		return nil, fmt.Errorf("%w: write %d bytes at %d, remaining %d", ErrOverflow, n, a.off, a.Remaining())
	}

	b := a.buf[a.off : a.off+n]
	a.off += n
	return b, nil
}

// PutUint64 writes v at the cursor.
func (a *Arena) PutUint64(v uint64) error {
	b, err := a.next(8)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// Write copies p at the cursor.
//
// Write implements io.Writer but unlike most writers, it fails without writing anything if p does not fit.
func (a *Arena) Write(p []byte) (int, error) {
	b, err := a.next(len(p))
	if err != nil {
		return 0, err
	}

	return copy(b, p), nil
}

// CopyFrom reads n bytes at offset off of src directly into the arena.
func (a *Arena) CopyFrom(src io.ReaderAt, off int64, n int) error {
	start := a.off
	b, err := a.next(n)
	if err != nil {
		return err
	}

	switch m, err := src.ReadAt(b, off); {
	case m == n:
		return nil
	case err == nil || errors.Is(err, io.EOF):
		a.off = start
		return fmt.Errorf("copy %d bytes at %d error: insufficient read: got %d: %w", n, off, m, io.ErrUnexpectedEOF)
	default:
		a.off = start
		return fmt.Errorf("copy %d bytes at %d error: %w", n, off, err)
	}
}

// Bytes hands over the content of the arena.
//
// Returns ErrIncomplete if the arena has not been filled exactly. After a successful call, the arena is reset to size
// zero so that the caller becomes the sole owner of the returned slice.
func (a *Arena) Bytes() ([]byte, error) {
	if a.off != len(a.buf) {
		return nil, fmt.Errorf("%w: written %d of %d bytes", ErrIncomplete, a.off, len(a.buf))
	}

	b := a.buf
	a.buf, a.off = nil, 0
	return b, nil
}
