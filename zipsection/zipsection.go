// Package zipsection locates the central directory and end of central directory record of a ZIP archive.
package zipsection

import (
	"errors"
	"fmt"

	"github.com/nguyengg/apkchannel/source"
)

var (
	// ErrNotAZip is returned if no EOCD record was found.
	ErrNotAZip = errors.New("end of central directory not found; most likely not a ZIP file")

	// ErrMalformedZip is returned if the central directory and the EOCD record are inconsistent with each other.
	ErrMalformedZip = errors.New("malformed ZIP")
)

// Sections describes where the central directory and EOCD record of a ZIP archive are.
//
// The central directory is always immediately followed by the EOCD record, which extends until the end of the archive.
type Sections struct {
	// CentralDirOffset is the offset of the start of the central directory as recorded in the EOCD record.
	CentralDirOffset int64
	// CentralDirSize is the size in bytes of the central directory as recorded in the EOCD record.
	CentralDirSize int64
	// CentralDirRecordCount is the total number of central directory records.
	CentralDirRecordCount int
	// EOCDOffset is the offset of the EOCD record.
	EOCDOffset int64
	// EOCD is the content of the EOCD record including its comment.
	EOCD []byte
}

// Locate finds the ZIP sections of the given src.
//
// Returns ErrNotAZip if there is no EOCD record, ErrMalformedZip if the central directory does not end exactly where
// the EOCD record starts. ZIP64 archives are rejected with ErrMalformedZip as a result since their locator record sits
// in between.
func Locate(src source.Source) (s Sections, err error) {
	eocd, eocdOffset, err := FindEOCD(src)
	if err != nil {
		return s, err
	}

	r, err := unmarshalEOCDRecord(eocd)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrMalformedZip, err)
	}

	s = Sections{
		CentralDirOffset:      int64(r.CDOffset),
		CentralDirSize:        int64(r.CDSize),
		CentralDirRecordCount: int(r.CDCount),
		EOCDOffset:            eocdOffset,
		EOCD:                  eocd,
	}

	if s.CentralDirOffset > eocdOffset {
		return s, fmt.Errorf("%w: central directory start offset out of range: %d, EOCD offset: %d", ErrMalformedZip, s.CentralDirOffset, eocdOffset)
	}

	if end := s.CentralDirOffset + s.CentralDirSize; end != eocdOffset {
		return s, fmt.Errorf("%w: central directory is not immediately followed by EOCD, central directory end: %d, EOCD start: %d", ErrMalformedZip, end, eocdOffset)
	}

	return s, nil
}
