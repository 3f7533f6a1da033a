// Package source provides random-access views over an APK, whether it lives in memory, on disk, or in S3.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrOutOfRange is returned when a read or a slice falls outside the bounds of a Source.
var ErrOutOfRange = errors.New("out of range")

// Source is a read-only, random-access byte source of known size.
type Source interface {
	io.ReaderAt

	// Size returns the total number of bytes in the source.
	Size() int64
}

// FromBytes returns a Source backed by the given slice. The slice must not be modified while the Source is in use.
func FromBytes(b []byte) Source {
	return byteSource(b)
}

type byteSource []byte

func (b byteSource) Size() int64 {
	return int64(len(b))
}

func (b byteSource) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 || off > int64(len(b)) {
		return 0, fmt.Errorf("read at %d: %w", off, ErrOutOfRange)
	}

	if n = copy(p, b[off:]); n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// File is a Source backed by an *os.File.
type File struct {
	*os.File
	size int64
}

// Open opens the named file for reading as a Source.
//
// Caller is responsible for closing the file.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &File{File: f, size: fi.Size()}, nil
}

func (f *File) Size() int64 {
	return f.size
}

// Slice returns a zero-copy view of n bytes starting at off.
//
// Slicing a Source created by FromBytes re-slices the underlying slice. Every other Source is wrapped so that reads
// are translated by off.
func Slice(src Source, off, n int64) (Source, error) {
	if off < 0 || n < 0 || off+n > src.Size() {
		return nil, fmt.Errorf("slice [%d, %d) of %d bytes: %w", off, off+n, src.Size(), ErrOutOfRange)
	}

	switch s := src.(type) {
	case byteSource:
		return s[off : off+n], nil
	case *section:
		return &section{src: s.src, off: s.off + off, n: n}, nil
	default:
		return &section{src: src, off: off, n: n}, nil
	}
}

type section struct {
	src    Source
	off, n int64
}

func (s *section) Size() int64 {
	return s.n
}

func (s *section) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 || off > s.n {
		return 0, fmt.Errorf("read at %d: %w", off, ErrOutOfRange)
	}

	if remaining := s.n - off; int64(len(p)) > remaining {
		n, err = s.src.ReadAt(p[:remaining], s.off+off)
		if err == nil {
			err = io.EOF
		}
		return
	}

	return s.src.ReadAt(p, s.off+off)
}

// ReadFull reads exactly n bytes starting at off.
//
// Unlike io.ReaderAt, a short read is always an error: ErrOutOfRange if the requested range does not fit in src,
// io.ErrUnexpectedEOF if src returned fewer bytes than its size promised.
func ReadFull(src Source, off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off+n > src.Size() {
		return nil, fmt.Errorf("read [%d, %d) of %d bytes: %w", off, off+n, src.Size(), ErrOutOfRange)
	}

	if b, ok := src.(byteSource); ok {
		return append([]byte(nil), b[off:off+n]...), nil
	}

	p := make([]byte, n)
	switch m, err := src.ReadAt(p, off); {
	case int64(m) == n:
		return p, nil
	case err != nil && !errors.Is(err, io.EOF):
		return nil, err
	default:
		return nil, fmt.Errorf("read [%d, %d): insufficient read: expected %d bytes, got %d: %w", off, off+n, n, m, io.ErrUnexpectedEOF)
	}
}

// ReadAll reads the entire source into memory.
func ReadAll(src Source) ([]byte, error) {
	return ReadFull(src, 0, src.Size())
}
