package apkchannel

import (
	"github.com/nguyengg/apkchannel/sigblock"
	"github.com/nguyengg/apkchannel/source"
	"github.com/nguyengg/apkchannel/zipsection"
)

// ReadOptions customises Read and ReadFile.
type ReadOptions struct {
	// Strict makes Read and ReadFile return every failure to the caller.
	//
	// By default, any failure (missing file, not a ZIP, no signing block, I/O error, invalid marker) is logged to
	// Logger and degrades to the zero Marker with a nil error, so that "no channel" is never an error. Note that an
	// APK without channel pair always returns the zero Marker and a nil error regardless of Strict; use Inspect to
	// tell the two apart.
	Strict bool

	// Logger receives diagnostic messages. By default, messages are discarded.
	Logger Logger
}

func newReadOptions(optFns []func(*ReadOptions)) *ReadOptions {
	opts := &ReadOptions{Logger: discard}
	for _, fn := range optFns {
		fn(opts)
	}
	if opts.Logger == nil {
		opts.Logger = discard
	}

	return opts
}

// Inspect reads the channel marker from the given APK.
//
// The found return value is false if the signing block has no channel pair or if the pair is empty; this is not an
// error. Otherwise, the returned error is one of ErrNotAZip, ErrMalformedZip, ErrSignatureNotFound, ErrInvalidMarker,
// or an *IOError.
func Inspect(src source.Source) (m Marker, found bool, err error) {
	return inspect(src, "")
}

func inspect(src source.Source, name string) (m Marker, found bool, err error) {
	sections, err := zipsection.Locate(src)
	if err != nil {
		return m, false, classify("read", name, err)
	}

	block, err := sigblock.Locate(src, sections)
	if err != nil {
		return m, false, classify("read", name, err)
	}

	es, err := block.Entries()
	if err != nil {
		return m, false, classify("read", name, err)
	}

	value, ok := es.Get(ChannelID)
	if !ok || len(value) == 0 {
		return m, false, nil
	}

	if m, err = UnmarshalMarker(value); err != nil {
		return m, false, err
	}

	return m, true, nil
}

// Read returns the channel marker of the given APK.
//
// See ReadOptions.Strict for how failures are reported.
func Read(src source.Source, optFns ...func(*ReadOptions)) (Marker, error) {
	return read(src, "", newReadOptions(optFns))
}

func read(src source.Source, name string, opts *ReadOptions) (Marker, error) {
	m, found, err := inspect(src, name)
	switch {
	case err != nil:
		if opts.Strict {
			return Marker{}, err
		}

		opts.Logger.Printf("read channel error, defaulting to empty channel: %v", err)
		return Marker{}, nil
	case !found:
		opts.Logger.Printf("no channel found")
	default:
		opts.Logger.Printf("read channel: %s", m)
	}

	return m, nil
}

// ReadFile returns the channel marker of the named APK.
//
// See ReadOptions.Strict for how failures are reported.
func ReadFile(name string, optFns ...func(*ReadOptions)) (Marker, error) {
	opts := newReadOptions(optFns)

	f, err := source.Open(name)
	if err != nil {
		err = &IOError{Op: "open", Path: name, Err: err}
		if opts.Strict {
			return Marker{}, err
		}

		opts.Logger.Printf("read channel error, defaulting to empty channel: %v", err)
		return Marker{}, nil
	}
	defer f.Close()

	return read(f, name, opts)
}
