package apkchannel

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/nguyengg/apkchannel/internal/testutil"
	"github.com/nguyengg/apkchannel/sigblock"
	"github.com/nguyengg/apkchannel/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewrite_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		channel string
	}{
		{name: "ascii", channel: "app_store"},
		{name: "empty", channel: ""},
		{name: "unicode", channel: "华为应用市场"},
		{name: "needs escaping", channel: `quote"back\slash<&>`},
		{name: "long", channel: strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.NewAPK(t)

			out, err := Rewrite(source.FromBytes(data), tt.channel)
			require.NoErrorf(t, err, "Rewrite() error = %v", err)

			m, found, err := Inspect(source.FromBytes(out))
			require.NoErrorf(t, err, "Inspect() error = %v", err)
			assert.True(t, found)
			assert.Equal(t, tt.channel, m.ChannelName)
		})
	}
}

func TestRewrite_Layout(t *testing.T) {
	v2 := testutil.FakeSchemeV2()
	other := testutil.Pair{ID: 0x42726577, Value: bytes.Repeat([]byte{0}, 100)}
	block := testutil.SigningBlock(v2, other)
	data := testutil.NewAPK(t, v2, other)
	cdOffset, eocdOffset := testutil.CentralDirOffset(t, data)
	blockOffset := cdOffset - len(block)

	channel := "google_play"
	value, err := Marker{ChannelName: channel}.MarshalBinary()
	require.NoError(t, err)
	pairSize := 8 + 4 + len(value)

	out, err := Rewrite(source.FromBytes(data), channel)
	require.NoErrorf(t, err, "Rewrite() error = %v", err)

	// size invariant.
	assert.Equal(t, len(data)+pairSize, len(out))

	// everything before the signing block is untouched.
	assert.Equal(t, data[:blockOffset], out[:blockOffset])

	// new block: size fields, verbatim old pairs, new pair, magic.
	newBlock := out[blockOffset : cdOffset+pairSize]
	assert.Equal(t, testutil.SigningBlock(v2, other, testutil.Pair{ID: testutil.ChannelID, Value: value}), newBlock)
	assert.Equal(t, block[8:len(block)-24], newBlock[8:8+len(block)-32])

	// central directory and EOCD are untouched except for the central directory offset.
	newEOCDOffset := eocdOffset + pairSize
	assert.Equal(t, data[cdOffset:eocdOffset+16], out[cdOffset+pairSize:newEOCDOffset+16])
	assert.Equal(t, data[eocdOffset+20:], out[newEOCDOffset+20:])
	assert.Equal(t, uint32(cdOffset+pairSize), binary.LittleEndian.Uint32(out[newEOCDOffset+16:]))
}

func TestRewrite_StillAValidZip(t *testing.T) {
	data := testutil.NewAPK(t)

	out, err := Rewrite(source.FromBytes(data), "huawei")
	require.NoErrorf(t, err, "Rewrite() error = %v", err)

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoErrorf(t, err, "zip.NewReader() error = %v", err)
	require.Len(t, zr.File, len(testutil.DefaultFiles))

	for i, f := range zr.File {
		assert.Equal(t, testutil.DefaultFiles[i].Name, f.Name)

		r, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(r)
		_ = r.Close()
		require.NoError(t, err)
		assert.Equal(t, testutil.DefaultFiles[i].Content, string(content))
	}
}

func TestRewrite_PreservesExistingPairs(t *testing.T) {
	v2 := testutil.FakeSchemeV2()
	data := testutil.NewAPK(t, v2)

	out, err := Rewrite(source.FromBytes(data), "oppo")
	require.NoError(t, err)

	_, found, err := Inspect(source.FromBytes(out))
	require.NoError(t, err)
	require.True(t, found)

	es := decodeBlock(t, out)
	require.Len(t, es, 2)
	assert.Equal(t, sigblock.Entry{Tag: v2.ID, Value: v2.Value}, es[0])
	assert.Equal(t, ChannelID, es[1].Tag)
}

func TestRewrite_Twice(t *testing.T) {
	data := testutil.NewAPK(t)

	first, err := Rewrite(source.FromBytes(data), "first")
	require.NoError(t, err)
	second, err := Rewrite(source.FromBytes(first), "second")
	require.NoError(t, err)

	m, found, err := Inspect(source.FromBytes(second))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", m.ChannelName)
	assert.Len(t, decodeBlock(t, second), 3)
}

// TestRewrite_Scenario uses a synthetic 1,000,000-byte archive with a 200-byte signing block at 999,700, whose
// central directory starts at 999,900.
func TestRewrite_Scenario(t *testing.T) {
	data := make([]byte, 1_000_000)
	block := testutil.SigningBlock(testutil.Pair{ID: testutil.SchemeV2ID, Value: bytes.Repeat([]byte{0x5a}, 156)})
	require.Len(t, block, 200)
	copy(data[999_700:], block)

	// 78 bytes of (opaque) central directory then a 22-byte EOCD record.
	copy(data[999_900:], bytes.Repeat([]byte{0xab}, 78))
	eocd := data[999_978:]
	binary.LittleEndian.PutUint32(eocd, 0x06054b50)
	binary.LittleEndian.PutUint16(eocd[8:], 1)
	binary.LittleEndian.PutUint16(eocd[10:], 1)
	binary.LittleEndian.PutUint32(eocd[12:], 78)
	binary.LittleEndian.PutUint32(eocd[16:], 999_900)

	out, err := Rewrite(source.FromBytes(data), "app_store")
	require.NoErrorf(t, err, "Rewrite() error = %v", err)

	// {"channelName":"app_store"} is 27 bytes, so the pair is 8 + 4 + 27 = 39 bytes.
	assert.Equal(t, 1_000_039, len(out))
	assert.Equal(t, uint32(999_939), binary.LittleEndian.Uint32(out[999_978+39+16:]))

	// every other EOCD byte is copied verbatim.
	assert.Equal(t, data[999_978:999_978+16], out[999_978+39:999_978+39+16])
	assert.Equal(t, data[999_978+20:], out[999_978+39+20:])
	assert.Equal(t, uint64(200+39-8), binary.LittleEndian.Uint64(out[999_700:]))

	m, err := Read(source.FromBytes(out), func(opts *ReadOptions) {
		opts.Strict = true
	})
	require.NoError(t, err)
	assert.Equal(t, "app_store", m.ChannelName)
}

func TestRewrite_Errors(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want error
	}{
		{
			name: "not a zip",
			data: func(t *testing.T) []byte {
				return []byte("definitely not a zip file, just some text that goes on for a while")
			},
			want: ErrNotAZip,
		},
		{
			name: "malformed zip",
			data: func(t *testing.T) []byte {
				data := testutil.NewAPK(t)
				binary.LittleEndian.PutUint32(data[len(data)-22+12:], 1)
				return data
			},
			want: ErrMalformedZip,
		},
		{
			name: "unsigned zip",
			data: func(t *testing.T) []byte {
				return testutil.NewZip(t, testutil.DefaultFiles...)
			},
			want: ErrSignatureNotFound,
		},
		{
			name: "bad magic",
			data: func(t *testing.T) []byte {
				block := testutil.SigningBlock(testutil.FakeSchemeV2())
				copy(block[len(block)-16:], "APK Sig Block 41")
				return testutil.InjectSigningBlock(t, testutil.NewZip(t, testutil.DefaultFiles...), block)
			},
			want: ErrSignatureNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Rewrite(source.FromBytes(tt.data(t)), "channel")
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, out)
		})
	}
}

func TestRead(t *testing.T) {
	withChannel, err := Rewrite(source.FromBytes(testutil.NewAPK(t)), "xiaomi")
	require.NoError(t, err)

	badMagic := testutil.SigningBlock(testutil.FakeSchemeV2())
	badMagic[len(badMagic)-1] = 0

	// the last pair claims more bytes than there are left.
	badPair := testutil.SigningBlock(testutil.FakeSchemeV2(), testutil.Pair{ID: testutil.ChannelID, Value: []byte("{}")})
	binary.LittleEndian.PutUint64(badPair[8+8+4+256:], 100)

	tests := []struct {
		name      string
		data      []byte
		want      string
		wantFound bool
		wantErr   error
	}{
		{name: "with channel", data: withChannel, want: "xiaomi", wantFound: true},
		{name: "without channel", data: testutil.NewAPK(t)},
		{
			name: "empty channel value",
			data: testutil.NewAPK(t, testutil.FakeSchemeV2(), testutil.Pair{ID: testutil.ChannelID}),
		},
		{
			name:    "not a zip",
			data:    []byte("hello"),
			wantErr: ErrNotAZip,
		},
		{
			name:    "bad magic",
			data:    testutil.InjectSigningBlock(t, testutil.NewZip(t, testutil.DefaultFiles...), badMagic),
			wantErr: ErrSignatureNotFound,
		},
		{
			name:    "bad pair",
			data:    testutil.InjectSigningBlock(t, testutil.NewZip(t, testutil.DefaultFiles...), badPair),
			wantErr: ErrSignatureNotFound,
		},
		{
			name:    "invalid json",
			data:    testutil.NewAPK(t, testutil.Pair{ID: testutil.ChannelID, Value: []byte("xiaomi")}),
			wantErr: ErrInvalidMarker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, found, err := Inspect(source.FromBytes(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, m.ChannelName)

			// strict mode surfaces the same error.
			m, err = Read(source.FromBytes(tt.data), func(opts *ReadOptions) {
				opts.Strict = true
			})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, m.ChannelName)

			// lenient mode never fails.
			buf := &bytes.Buffer{}
			m, err = Read(source.FromBytes(tt.data), func(opts *ReadOptions) {
				opts.Logger = log.New(buf, "", 0)
			})
			assert.NoError(t, err)
			assert.Equal(t, tt.want, m.ChannelName)
			if tt.wantErr != nil {
				assert.Contains(t, buf.String(), "defaulting to empty channel")
			}
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	m, err := ReadFile("/definitely/does/not/exist.apk")
	assert.NoError(t, err)
	assert.Equal(t, Marker{}, m)

	_, err = ReadFile("/definitely/does/not/exist.apk", func(opts *ReadOptions) {
		opts.Strict = true
	})
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
}

func TestIOError(t *testing.T) {
	_, err := Rewrite(&failingSource{data: testutil.NewAPK(t)}, "channel")

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

// failingSource fails every read that starts in the first half of the file, which the rewrite must copy.
type failingSource struct {
	data []byte
}

func (f *failingSource) Size() int64 {
	return int64(len(f.data))
}

func (f *failingSource) ReadAt(p []byte, off int64) (int, error) {
	if off < int64(len(f.data)/2) {
		return 0, io.ErrClosedPipe
	}

	return bytes.NewReader(f.data).ReadAt(p, off)
}

func decodeBlock(t *testing.T, data []byte) sigblock.Entries {
	t.Helper()

	cdOffset, _ := testutil.CentralDirOffset(t, data)
	size := int(binary.LittleEndian.Uint64(data[cdOffset-24:]))
	es, err := sigblock.Decode(data[cdOffset-size : cdOffset-24])
	require.NoError(t, err)
	return es
}
