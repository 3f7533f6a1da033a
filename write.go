package apkchannel

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/apkchannel/internal/arena"
	"github.com/nguyengg/apkchannel/sigblock"
	"github.com/nguyengg/apkchannel/source"
	"github.com/nguyengg/apkchannel/zipsection"
)

// WriteOptions customises Rewrite, Write, and WriteFile.
type WriteOptions struct {
	// Logger receives diagnostic messages. By default, messages are discarded.
	Logger Logger

	// Now is used to date the output file name. By default, time.Now is used.
	Now func() time.Time

	// OnWritten is called by Write after the sink has stored the output.
	OnWritten func(channel, location string, data []byte)
}

func newWriteOptions(optFns []func(*WriteOptions)) *WriteOptions {
	opts := &WriteOptions{Logger: discard, Now: time.Now}
	for _, fn := range optFns {
		fn(opts)
	}
	if opts.Logger == nil {
		opts.Logger = discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return opts
}

// Rewrite returns a copy of the given APK with a channel pair appended to its signing block.
//
// The bytes before the signing block and the existing pairs are copied verbatim, so any signature in the block stays
// valid. The central directory and EOCD record are copied verbatim too, except for the central directory offset in
// the EOCD record which is shifted by the size of the new pair. The returned image is therefore exactly
// 8 + 4 + len(json) bytes longer than the input.
//
// If the block already has a channel pair, the new pair still gets appended; readers pick the last one.
//
// Returns ErrNotAZip, ErrMalformedZip, ErrSignatureNotFound, or an *IOError. Nothing is returned on failure; there is
// no partially rewritten image.
func Rewrite(src source.Source, channel string, optFns ...func(*WriteOptions)) ([]byte, error) {
	return rewrite(src, "", channel, newWriteOptions(optFns))
}

func rewrite(src source.Source, name, channel string, opts *WriteOptions) ([]byte, error) {
	sections, err := zipsection.Locate(src)
	if err != nil {
		return nil, classify("read", name, err)
	}

	block, err := sigblock.Locate(src, sections)
	if err != nil {
		return nil, classify("read", name, err)
	}

	value, err := Marker{ChannelName: channel}.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode channel marker error: %w", err)
	}

	var (
		entry        = sigblock.Entry{Tag: ChannelID, Value: value}
		pairSize     = int64(sigblock.EntrySize(entry))
		size         = src.Size()
		cdOffset     = sections.CentralDirOffset
		newBlockSize = block.Size + pairSize
		newCDOffset  = cdOffset + pairSize
		newSize      = size + pairSize
	)

	if newBlockSize-sigblock.HeaderSize > math.MaxInt32-sigblock.HeaderSize {
		return nil, fmt.Errorf("%w: new signing block size out of range: %d", ErrSignatureNotFound, newBlockSize)
	}
	if newSize > math.MaxInt {
		return nil, &IOError{Op: "allocate", Path: name, Err: fmt.Errorf("output of %d bytes is too large", newSize)}
	}

	opts.Logger.Printf("signing block at %d is %s, central directory at %d, adding %s channel pair (new size %s)",
		block.Offset, humanize.IBytes(uint64(block.Size)), cdOffset, humanize.IBytes(uint64(pairSize)), humanize.IBytes(uint64(newSize)))

	a := arena.New(int(newSize))
	if err = fill(a, src, sections, block, entry, newBlockSize); err != nil {
		return nil, classify("rewrite", name, err)
	}

	out, err := a.Bytes()
	if err != nil {
		return nil, classify("rewrite", name, err)
	}

	// the EOCD record moved downstream by exactly pairSize bytes.
	if err = zipsection.PatchCentralDirOffset(out[sections.EOCDOffset+pairSize:], newCDOffset); err != nil {
		return nil, err
	}

	return out, nil
}

// fill writes into a everything before the signing block, the new signing block, then the central directory and EOCD.
func fill(a *arena.Arena, src source.Source, sections zipsection.Sections, block *sigblock.Block, entry sigblock.Entry, newBlockSize int64) error {
	if err := a.CopyFrom(src, 0, int(block.Offset)); err != nil {
		return fmt.Errorf("copy entries error: %w", err)
	}

	if err := a.PutUint64(uint64(newBlockSize - sigblock.HeaderSize)); err != nil {
		return err
	}
	if err := a.CopyFrom(src, block.Offset+sigblock.HeaderSize, int(block.Size-sigblock.MinSize)); err != nil {
		return fmt.Errorf("copy existing pairs error: %w", err)
	}
	if _, err := a.Write(sigblock.AppendEntry(nil, entry)); err != nil {
		return err
	}
	if _, err := a.Write(sigblock.AppendFooter(nil, uint64(newBlockSize-sigblock.HeaderSize))); err != nil {
		return err
	}

	if n := src.Size() - sections.CentralDirOffset; a.Remaining() != int(n) {
		return fmt.Errorf("%w: %d bytes left for %d bytes of central directory and EOCD", arena.ErrOverflow, a.Remaining(), n)
	}
	if err := a.CopyFrom(src, sections.CentralDirOffset, a.Remaining()); err != nil {
		return fmt.Errorf("copy central directory error: %w", err)
	}

	return nil
}

// Write rewrites the given APK with the channel and stores the result in sink.
//
// The name is the input's file name (or S3 key) and is only used to derive the output name with OutputName. Returns
// the location of the output as reported by the sink.
func Write(ctx context.Context, src source.Source, name string, sink Sink, channel string, optFns ...func(*WriteOptions)) (string, error) {
	opts := newWriteOptions(optFns)

	data, err := rewrite(src, name, channel, opts)
	if err != nil {
		return "", err
	}

	if err = ctx.Err(); err != nil {
		return "", err
	}

	out := OutputName(name, channel, opts.Now())
	location, err := sink.Put(ctx, out, data)
	if err != nil {
		return "", classify("write", out, err)
	}

	opts.Logger.Printf(`wrote channel "%s" to "%s" (%s)`, channel, location, humanize.IBytes(uint64(len(data))))
	if opts.OnWritten != nil {
		opts.OnWritten(channel, location, data)
	}

	return location, nil
}

// WriteFile is a variant of Write that opens the named file as the input.
func WriteFile(ctx context.Context, name string, sink Sink, channel string, optFns ...func(*WriteOptions)) (string, error) {
	f, err := source.Open(name)
	if err != nil {
		return "", &IOError{Op: "open", Path: name, Err: err}
	}
	defer f.Close()

	return Write(ctx, f, name, sink, channel, optFns...)
}
