package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/nguyengg/apkchannel"
	"github.com/nguyengg/apkchannel/internal"
	"github.com/nguyengg/apkchannel/internal/channels"
	"github.com/nguyengg/apkchannel/internal/manifest"
	"github.com/nguyengg/apkchannel/source"
	"golang.org/x/sync/errgroup"
)

// write creates one copy of the --write APK per channel listed in --channels.
func (c *Command) write(ctx context.Context) error {
	names, err := channels.Load(string(c.Channels))
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Printf(`no channels found in "%s"`, c.Channels)
		return nil
	}

	// the input is read once then shared read-only by all workers.
	in, closer, err := c.open(ctx, c.Write)
	if err != nil {
		return err
	}
	data, err := source.ReadAll(in)
	// read-only, so the close error is ignored.
	_ = closer.Close()
	if err != nil {
		return &apkchannel.IOError{Op: "read", Path: c.Write, Err: err}
	}
	src := source.FromBytes(data)

	sink, err := c.sink(ctx)
	if err != nil {
		return err
	}

	var man *manifest.Manifest
	if c.Manifest != "" {
		man = manifest.New(c.Write, data)
	}

	n := len(names)
	r := newReporter(n, c.Progress)

	var failures atomic.Int64
	fn := func(ctx context.Context, i int, channel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger := internal.NewLogger(i, n, channel)

		var size int64
		_, err := apkchannel.Write(ctx, src, c.Write, sink, channel, func(opts *apkchannel.WriteOptions) {
			opts.Logger = logger
			opts.Now = c.now
			opts.OnWritten = func(channel, location string, data []byte) {
				size = int64(len(data))
				if man != nil {
					man.Add(channel, location, data)
				}
			}
		})
		r.done(size, err)

		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}

		failures.Add(1)
		logger.Printf("write error: %v", err)
		if c.KeepGoing {
			return nil
		}

		return fmt.Errorf(`write channel "%s" error: %w`, channel, err)
	}

	if c.MaxConcurrency > 1 {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(c.MaxConcurrency)
		for i, channel := range names {
			g.Go(func() error {
				return fn(ctx, i, channel)
			})
		}
		err = g.Wait()
	} else {
		for i, channel := range names {
			if err = fn(ctx, i, channel); err != nil {
				break
			}
		}
	}

	r.close()

	if man != nil {
		if mErr := man.SaveToFile(string(c.Manifest)); mErr != nil {
			err = errors.Join(err, mErr)
		} else {
			log.Printf(`saved manifest to "%s"`, c.Manifest)
		}
	}

	if err == nil && failures.Load() != 0 {
		err = fmt.Errorf("failed to write %d/%d channels", failures.Load(), n)
	}

	return err
}
