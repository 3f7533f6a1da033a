package sigblock

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Entry is an ID-value pair stored in the signing block.
type Entry struct {
	Tag   uint32
	Value []byte
}

// Entries is the ordered sequence of pairs of a signing block.
type Entries []Entry

// Get returns the value of the pair with the given tag.
//
// Tags are not required to be unique; the last pair with the given tag wins.
func (es Entries) Get(tag uint32) (value []byte, ok bool) {
	for _, e := range es {
		if e.Tag == tag {
			value, ok = e.Value, true
		}
	}

	return
}

// EntrySize returns the number of bytes that the pair takes on the wire: the length field, the tag, then the value.
func EntrySize(e Entry) int {
	return 8 + 4 + len(e.Value)
}

// Decode walks the given pairs section sequentially.
//
// Each pair starts with a uint64 length that covers the tag and the value, followed by the uint32 tag, then the value.
// Returns ErrSignatureNotFound if a length cannot be read or is out of range. The returned values alias payload.
func Decode(payload []byte) (Entries, error) {
	var (
		es Entries
		i  int
	)

	for pos := 0; pos < len(payload); {
		i++

		remaining := len(payload) - pos
		if remaining < 8 {
			return nil, fmt.Errorf("%w: insufficient data to read size of entry #%d", ErrSignatureNotFound, i)
		}

		n := binary.LittleEndian.Uint64(payload[pos:])
		pos += 8
		remaining -= 8

		if n < 4 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: entry #%d size out of range: %d", ErrSignatureNotFound, i, n)
		}
		if n > uint64(remaining) {
			return nil, fmt.Errorf("%w: entry #%d size out of range: %d, available: %d", ErrSignatureNotFound, i, n, remaining)
		}

		end := pos + int(n)
		es = append(es, Entry{
			Tag:   binary.LittleEndian.Uint32(payload[pos:]),
			Value: payload[pos+4 : end : end],
		})
		pos = end
	}

	return es, nil
}

// AppendEntry appends the wire encoding of e to dst.
func AppendEntry(dst []byte, e Entry) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(4+len(e.Value)))
	dst = binary.LittleEndian.AppendUint32(dst, e.Tag)
	return append(dst, e.Value...)
}

// Encode returns the wire encoding of the given pairs in the given order.
func Encode(es ...Entry) []byte {
	n := 0
	for _, e := range es {
		n += EntrySize(e)
	}

	b := make([]byte, 0, n)
	for _, e := range es {
		b = AppendEntry(b, e)
	}

	return b
}
