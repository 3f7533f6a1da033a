package arena

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena(t *testing.T) {
	a := New(8 + 3 + 4)

	require.NoError(t, a.PutUint64(0x0102030405060708))
	n, err := a.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, a.CopyFrom(bytes.NewReader([]byte("0123456789")), 6, 4))
	assert.Equal(t, 0, a.Remaining())

	b, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		'a', 'b', 'c',
		'6', '7', '8', '9',
	}, b)

	// ownership has been handed over.
	assert.Equal(t, 0, a.Remaining())
	_, err = a.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestArena_Overflow(t *testing.T) {
	a := New(10)

	require.NoError(t, a.PutUint64(1))
	assert.ErrorIs(t, a.PutUint64(1), ErrOverflow)
	_, err := a.Write([]byte("abc"))
	assert.ErrorIs(t, err, ErrOverflow)
	assert.ErrorIs(t, a.CopyFrom(bytes.NewReader(make([]byte, 10)), 0, 3), ErrOverflow)
	assert.Equal(t, 2, a.Remaining(), "failed writes must not move the cursor")

	_, err = a.Bytes()
	assert.ErrorIs(t, err, ErrIncomplete)
}

type failingReaderAt struct{}

func (failingReaderAt) ReadAt([]byte, int64) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestArena_CopyFromShortRead(t *testing.T) {
	a := New(8)

	err := a.CopyFrom(bytes.NewReader([]byte("abc")), 0, 8)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 8, a.Remaining())

	err = a.CopyFrom(failingReaderAt{}, 0, 8)
	assert.ErrorContains(t, err, "disk on fire")
	assert.Equal(t, 8, a.Remaining())
}
