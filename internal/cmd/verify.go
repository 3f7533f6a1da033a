package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nguyengg/apkchannel"
	"github.com/nguyengg/apkchannel/internal"
	"github.com/nguyengg/apkchannel/internal/manifest"
	"github.com/nguyengg/apkchannel/source"
)

// verify checks every output of the --verify manifest.
//
// All outputs are checked even if some fail.
func (c *Command) verify(ctx context.Context) error {
	man, err := manifest.UnmarshalFromFile(string(c.Verify))
	if err != nil {
		return err
	}

	n := len(man.Outputs)
	failures := 0
	for i, o := range man.Outputs {
		logger := internal.NewLogger(i, n, o.Channel)

		if err = c.verifyOutput(ctx, man, i); err == nil {
			logger.Printf(`verified "%s"`, o.Location)
			continue
		}

		if errors.Is(err, context.Canceled) {
			return err
		}

		failures++
		logger.Printf("verify error: %v", err)
	}

	if failures != 0 {
		return fmt.Errorf("failed to verify %d/%d outputs", failures, n)
	}

	log.Printf("successfully verified %d/%d outputs", n, n)
	return nil
}

// verifyOutput checks the size, digest, and channel of the output at index i.
func (c *Command) verifyOutput(ctx context.Context, man *manifest.Manifest, i int) error {
	o := man.Outputs[i]

	src, closer, err := c.open(ctx, o.Location)
	if err != nil {
		return err
	}
	defer closer.Close()

	if src.Size() != o.Size {
		return fmt.Errorf("%w: size is %d, expected %d", manifest.ErrDigestMismatch, src.Size(), o.Size)
	}

	data, err := source.ReadAll(src)
	if err != nil {
		return &apkchannel.IOError{Op: "read", Path: o.Location, Err: err}
	}

	if err = man.Verify(i, data); err != nil {
		return err
	}

	m, _, err := apkchannel.Inspect(source.FromBytes(data))
	if err != nil {
		return err
	}
	if m.ChannelName != o.Channel {
		return fmt.Errorf(`channel is "%s", expected "%s"`, m.ChannelName, o.Channel)
	}

	return nil
}
