package zipsection

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nguyengg/apkchannel/source"
)

const (
	eocdSig = 0x06054b50

	// EOCDMinSize is the size of an EOCD record without comment.
	EOCDMinSize = 22

	// CentralDirOffsetField is the position of the central directory offset field within the EOCD record.
	CentralDirOffsetField = 16

	eocdCommentLengthField = 20
)

// EOCDRecord models the end of central directory record of a ZIP file.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#End_of_central_directory_record_(EOCD).
type EOCDRecord struct {
	// DiskNumber is number of this disk (or 0xffff for ZIP64).
	DiskNumber uint16
	// CDDiskOffset is disk where central directory starts (or 0xffff for ZIP64).
	CDDiskOffset uint16
	// CDCountOnDisk is the number of central directory records on this disk (or 0xffff for ZIP64).
	CDCountOnDisk uint16
	// CDCount is the total number of central directory records (or 0xffff for ZIP64).
	CDCount uint16
	// CDSize is size of central directory (bytes) (or 0xffffffff for ZIP64).
	CDSize uint32
	// CDOffset is offset of start of central directory, relative to start of archive (or 0xffffffff for ZIP64).
	CDOffset uint32
	// CommentLength is the length of the comment that follows the fixed-size part of the record.
	CommentLength uint16
}

// FindEOCD searches the given src backwards for the EOCD record.
//
// The record is returned in full (including its comment) together with its offset in src. The scan first assumes the
// archive has no comment, which is the common case for APKs, then widens the window to the maximum comment size. A
// candidate signature is only accepted if its comment length reaches exactly the end of src.
//
// Returns ErrNotAZip if no such record exists.
func FindEOCD(src source.Source) (eocd []byte, offset int64, err error) {
	size := src.Size()
	if size < EOCDMinSize {
		return nil, -1, fmt.Errorf("%w: file is too short (%d bytes)", ErrNotAZip, size)
	}

	for _, maxCommentSize := range []int64{0, math.MaxUint16} {
		n := min(size, EOCDMinSize+maxCommentSize)
		buf, err := source.ReadFull(src, size-n, n)
		if err != nil {
			return nil, -1, fmt.Errorf("read last %d bytes error: %w", n, err)
		}

		if i := findEOCDInBuffer(buf); i != -1 {
			return buf[i:], size - n + int64(i), nil
		}

		if n == size {
			break
		}
	}

	return nil, -1, ErrNotAZip
}

// findEOCDInBuffer returns the index of the last EOCD record in buf whose comment extends to the end of buf.
func findEOCDInBuffer(buf []byte) int {
	sig := binary.LittleEndian.AppendUint32(nil, eocdSig)

	for end := len(buf); ; {
		i := bytes.LastIndex(buf[:end], sig)
		if i == -1 {
			return -1
		}

		if i+EOCDMinSize <= len(buf) {
			commentLength := binary.LittleEndian.Uint16(buf[i+eocdCommentLengthField:])
			if i+EOCDMinSize+int(commentLength) == len(buf) {
				return i
			}
		}

		end = i + len(sig) - 1
	}
}

// unmarshalEOCDRecord decodes the fixed-size part of the given EOCD record.
func unmarshalEOCDRecord(b []byte) (r EOCDRecord, err error) {
	if len(b) < EOCDMinSize {
		return r, fmt.Errorf("insufficient data: need at least %d bytes, got %d", EOCDMinSize, len(b))
	}

	data := &struct {
		Signature uint32
		EOCDRecord
	}{}

	if err = binary.Read(bytes.NewReader(b[:EOCDMinSize]), binary.LittleEndian, data); err != nil {
		return r, fmt.Errorf("unmarshal error: %w", err)
	}

	if data.Signature != eocdSig {
		return r, fmt.Errorf("mismatched signature, got 0x%x, expected 0x%x", data.Signature, eocdSig)
	}

	return data.EOCDRecord, nil
}

// PatchCentralDirOffset overwrites the central directory offset field of the given EOCD record in place.
func PatchCentralDirOffset(eocd []byte, offset int64) error {
	if len(eocd) < EOCDMinSize {
		return fmt.Errorf("%w: EOCD record too short (%d bytes)", ErrMalformedZip, len(eocd))
	}
	if offset < 0 || offset > math.MaxUint32 {
		return fmt.Errorf("%w: central directory offset out of range: %d", ErrMalformedZip, offset)
	}

	binary.LittleEndian.PutUint32(eocd[CentralDirOffsetField:], uint32(offset))
	return nil
}
