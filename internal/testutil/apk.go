// Package testutil builds signed-looking APK fixtures for tests.
//
// The encoding here is written independently of package sigblock on purpose so that tests do not share bugs with the
// code under test.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"testing"
)

const (
	magicLo = 0x20676953204b5041
	magicHi = 0x3234206b636f6c42

	// SchemeV2ID is the ID of the APK Signature Scheme v2 pair.
	SchemeV2ID = 0x7109871a
	// ChannelID is the ID of the channel pair.
	ChannelID = 0x0010086a
)

// File is a file to be added to a ZIP fixture.
type File struct {
	Name    string
	Content string
}

// Pair is an ID-value pair to be added to a signing block fixture.
type Pair struct {
	ID    uint32
	Value []byte
}

// DefaultFiles is a small but realistic set of APK entries.
var DefaultFiles = []File{
	{Name: "AndroidManifest.xml", Content: "<manifest package=\"com.example\"/>"},
	{Name: "classes.dex", Content: "dex\n035\x00 not really a dex file"},
	{Name: "res/values/strings.xml", Content: "<resources><string name=\"app\">Example</string></resources>"},
}

// NewZip creates a ZIP archive containing the given files.
func NewZip(t testing.TB, files ...File) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", f.Name, err)
		}
		if _, err = w.Write([]byte(f.Content)); err != nil {
			t.Fatalf("Write(%s) error = %v", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	return buf.Bytes()
}

// SigningBlock encodes a complete APK signing block containing the given pairs in order.
func SigningBlock(pairs ...Pair) []byte {
	var payload []byte
	for _, p := range pairs {
		payload = binary.LittleEndian.AppendUint64(payload, uint64(4+len(p.Value)))
		payload = binary.LittleEndian.AppendUint32(payload, p.ID)
		payload = append(payload, p.Value...)
	}

	size := uint64(len(payload) + 24)
	b := binary.LittleEndian.AppendUint64(nil, size)
	b = append(b, payload...)
	b = binary.LittleEndian.AppendUint64(b, size)
	b = binary.LittleEndian.AppendUint64(b, magicLo)
	return binary.LittleEndian.AppendUint64(b, magicHi)
}

// CentralDirOffset returns the central directory offset and the EOCD offset of a ZIP archive without comment.
func CentralDirOffset(t testing.TB, data []byte) (cdOffset, eocdOffset int) {
	t.Helper()

	eocdOffset = len(data) - 22
	if eocdOffset < 0 || binary.LittleEndian.Uint32(data[eocdOffset:]) != 0x06054b50 {
		t.Fatalf("no EOCD record at end of archive")
	}

	return int(binary.LittleEndian.Uint32(data[eocdOffset+16:])), eocdOffset
}

// InjectSigningBlock inserts block immediately before the central directory and patches the EOCD record to match.
func InjectSigningBlock(t testing.TB, data, block []byte) []byte {
	t.Helper()

	cdOffset, eocdOffset := CentralDirOffset(t, data)

	out := make([]byte, 0, len(data)+len(block))
	out = append(out, data[:cdOffset]...)
	out = append(out, block...)
	out = append(out, data[cdOffset:]...)
	binary.LittleEndian.PutUint32(out[eocdOffset+len(block)+16:], uint32(cdOffset+len(block)))
	return out
}

// NewAPK creates a ZIP archive with DefaultFiles and a signing block containing the given pairs.
//
// If no pairs are given, a single fake v2 signature pair is used.
func NewAPK(t testing.TB, pairs ...Pair) []byte {
	t.Helper()

	if len(pairs) == 0 {
		pairs = []Pair{FakeSchemeV2()}
	}

	return InjectSigningBlock(t, NewZip(t, DefaultFiles...), SigningBlock(pairs...))
}

// FakeSchemeV2 returns a pair that looks like an APK Signature Scheme v2 pair.
func FakeSchemeV2() Pair {
	value := make([]byte, 256)
	for i := range value {
		value[i] = byte(i * 7)
	}

	return Pair{ID: SchemeV2ID, Value: value}
}
