// Package manifest records the outputs of a batch write.
package manifest

import (
	_ "crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/opencontainers/go-digest"
)

// ErrDigestMismatch is returned by Verify if the data does not match the recorded digest.
var ErrDigestMismatch = errors.New("digest mismatch")

// Manifest lists every output written from a single input.
//
// Manifest is safe for concurrent use.
type Manifest struct {
	Input   Input    `json:"input"`
	Outputs []Output `json:"outputs"`

	mu sync.Mutex
}

// Input describes the original archive.
type Input struct {
	Name   string        `json:"name"`
	Size   int64         `json:"size"`
	Digest digest.Digest `json:"digest"`
}

// Output describes one channel-tagged archive.
type Output struct {
	Channel  string        `json:"channel"`
	Location string        `json:"location"`
	Size     int64         `json:"size"`
	Digest   digest.Digest `json:"digest"`
}

// New creates a manifest for the input with the given name and contents.
func New(name string, data []byte) *Manifest {
	return &Manifest{
		Input:   Input{Name: name, Size: int64(len(data)), Digest: digest.FromBytes(data)},
		Outputs: make([]Output, 0),
	}
}

// Add records an output.
func (m *Manifest) Add(channel, location string, data []byte) {
	o := Output{Channel: channel, Location: location, Size: int64(len(data)), Digest: digest.FromBytes(data)}

	m.mu.Lock()
	m.Outputs = append(m.Outputs, o)
	m.mu.Unlock()
}

// SaveTo writes the manifest as indented JSON.
func (m *Manifest) SaveTo(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("save manifest error: %w", err)
	}

	return nil
}

// SaveToFile writes the manifest to the named file, truncating it if it exists.
func (m *Manifest) SaveToFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf(`create manifest file "%s" error: %w`, name, err)
	}

	return m.saveAndClose(f)
}

// saveAndClose always closes wc; a close error is returned only if SaveTo succeeded.
func (m *Manifest) saveAndClose(wc io.WriteCloser) error {
	if err := m.SaveTo(wc); err != nil {
		_ = wc.Close()
		return err
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("close manifest file error: %w", err)
	}

	return nil
}

// UnmarshalFromFile reads a manifest previously written with SaveToFile.
func UnmarshalFromFile(name string) (*Manifest, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf(`open manifest file "%s" error: %w`, name, err)
	}
	defer f.Close()

	return UnmarshalFromReader(f)
}

// UnmarshalFromReader decodes a manifest previously written with SaveTo.
func UnmarshalFromReader(r io.Reader) (m *Manifest, err error) {
	m = &Manifest{}

	d := json.NewDecoder(r)
	d.DisallowUnknownFields()
	if err = d.Decode(m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest error: %w", err)
	}

	return m, nil
}

// Verify checks that data matches the recorded digest of the output at index i.
func (m *Manifest) Verify(i int, data []byte) error {
	if i < 0 || i >= len(m.Outputs) {
		return fmt.Errorf("no output at index %d", i)
	}

	o := m.Outputs[i]
	if err := o.Digest.Validate(); err != nil {
		return fmt.Errorf(`invalid digest for "%s": %w`, o.Location, err)
	}

	verifier := o.Digest.Verifier()
	_, _ = verifier.Write(data)
	if !verifier.Verified() {
		return fmt.Errorf(`%w for "%s"`, ErrDigestMismatch, o.Location)
	}

	return nil
}
