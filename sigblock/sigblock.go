// Package sigblock locates and decodes the APK Signing Block.
//
// The block sits immediately before the ZIP central directory and has the following layout, little-endian
// throughout:
//
//	OFFSET  TYPE    DESCRIPTION
//	@+0     uint64  size in bytes, excluding this field
//	@+8     pairs   sequence of ID-value pairs
//	@-24    uint64  size in bytes, same as the one above
//	@-16    uint128 magic "APK Sig Block 42"
//
// See https://source.android.com/docs/security/features/apksigning/v2#apk-signing-block.
package sigblock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/nguyengg/apkchannel/source"
	"github.com/nguyengg/apkchannel/zipsection"
)

const (
	// MagicLo is the first half of the magic that ends every signing block ("APK Sig ").
	MagicLo uint64 = 0x20676953204b5041
	// MagicHi is the second half of the magic that ends every signing block ("Block 42").
	MagicHi uint64 = 0x3234206b636f6c42

	// MinSize is the size of a signing block with no pairs.
	MinSize = HeaderSize + FooterSize
	// HeaderSize is the size of the leading size field.
	HeaderSize = 8
	// FooterSize is the size of the trailing size field plus the magic.
	FooterSize = 24

	// SchemeV2ID is the ID of the APK Signature Scheme v2 pair.
	SchemeV2ID uint32 = 0x7109871a
	// ChannelID is the ID of the pair that stores the channel marker.
	ChannelID uint32 = 0x0010086a
)

// ErrSignatureNotFound is returned if the signing block cannot be found or one of its pairs is malformed.
var ErrSignatureNotFound = errors.New("APK signing block not found")

// Block is a signing block located inside an APK.
type Block struct {
	// Offset is the offset of the block in the APK.
	Offset int64
	// Size is the total size of the block, including the leading size field.
	Size int64

	src source.Source
}

// Locate finds the signing block that immediately precedes the central directory described by s.
//
// Returns ErrSignatureNotFound if the magic is missing or if the size fields are out of range or disagree with each
// other. Errors from reading src are returned as-is.
func Locate(src source.Source, s zipsection.Sections) (*Block, error) {
	cdOffset := s.CentralDirOffset
	if cdOffset < MinSize {
		return nil, fmt.Errorf("%w: APK too small for signing block, central directory offset: %d", ErrSignatureNotFound, cdOffset)
	}

	footer, err := source.ReadFull(src, cdOffset-FooterSize, FooterSize)
	if err != nil {
		return nil, fmt.Errorf("read signing block footer error: %w", err)
	}

	if binary.LittleEndian.Uint64(footer[8:]) != MagicLo || binary.LittleEndian.Uint64(footer[16:]) != MagicHi {
		return nil, fmt.Errorf("%w: no signing block before central directory", ErrSignatureNotFound)
	}

	sizeInFooter := binary.LittleEndian.Uint64(footer)
	if sizeInFooter < FooterSize || sizeInFooter > math.MaxInt32-HeaderSize {
		return nil, fmt.Errorf("%w: signing block size out of range: %d", ErrSignatureNotFound, sizeInFooter)
	}

	size := int64(sizeInFooter) + HeaderSize
	offset := cdOffset - size
	if offset < 0 {
		return nil, fmt.Errorf("%w: signing block offset out of range: %d", ErrSignatureNotFound, offset)
	}

	header, err := source.ReadFull(src, offset, HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("read signing block header error: %w", err)
	}

	if sizeInHeader := binary.LittleEndian.Uint64(header); sizeInHeader != sizeInFooter {
		return nil, fmt.Errorf("%w: signing block sizes in header and footer do not match: %d vs %d", ErrSignatureNotFound, sizeInHeader, sizeInFooter)
	}

	view, err := source.Slice(src, offset, size)
	if err != nil {
		return nil, fmt.Errorf("slice signing block error: %w", err)
	}

	return &Block{Offset: offset, Size: size, src: view}, nil
}

// Payload reads the pairs section of the block, i.e. everything between the header and the footer.
func (b *Block) Payload() ([]byte, error) {
	p, err := source.ReadFull(b.src, HeaderSize, b.Size-MinSize)
	if err != nil {
		return nil, fmt.Errorf("read signing block payload error: %w", err)
	}

	return p, nil
}

// Entries reads and decodes the pairs of the block.
func (b *Block) Entries() (Entries, error) {
	p, err := b.Payload()
	if err != nil {
		return nil, err
	}

	return Decode(p)
}

// AppendBlock appends to dst a complete signing block whose pairs section is payload.
func AppendBlock(dst, payload []byte) []byte {
	size := uint64(len(payload) + FooterSize)
	dst = binary.LittleEndian.AppendUint64(dst, size)
	dst = append(dst, payload...)
	return AppendFooter(dst, size)
}

// AppendFooter appends to dst the footer of a signing block whose size field (excluding the leading size field itself)
// is given.
func AppendFooter(dst []byte, size uint64) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, size)
	dst = binary.LittleEndian.AppendUint64(dst, MagicLo)
	return binary.LittleEndian.AppendUint64(dst, MagicHi)
}
