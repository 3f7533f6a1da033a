package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/nguyengg/apkchannel"
)

// read prints the channel of the --read APK, or an empty line if there is none.
func (c *Command) read(ctx context.Context) error {
	logger := log.Default()

	src, closer, err := c.open(ctx, c.Read)
	if err != nil {
		if c.Strict {
			return err
		}

		logger.Printf("read channel error, defaulting to empty channel: %v", err)
		_, err = fmt.Fprintln(c.stdout)
		return err
	}
	defer closer.Close()

	m, err := apkchannel.Read(src, func(opts *apkchannel.ReadOptions) {
		opts.Strict = c.Strict
		opts.Logger = logger
	})
	if err != nil {
		return fmt.Errorf(`read channel from "%s" error: %w`, c.Read, err)
	}

	_, err = fmt.Fprintln(c.stdout, m.ChannelName)
	return err
}
