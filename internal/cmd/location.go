package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nguyengg/apkchannel"
	"github.com/nguyengg/apkchannel/internal"
	"github.com/nguyengg/apkchannel/source"
)

// s3Client lazily creates the S3 client the first time an s3:// location is used.
func (c *Command) s3Client(ctx context.Context) (S3Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	client, err := c.newS3Client(ctx, c.Profile)
	if err != nil {
		return nil, fmt.Errorf("create s3 client error: %w", err)
	}

	c.client = client
	return client, nil
}

// open returns a source for the given local file or S3 URI.
//
// The returned io.Closer must be closed once the source is no longer needed.
func (c *Command) open(ctx context.Context, name string) (source.Source, io.Closer, error) {
	if !internal.IsS3URI(name) {
		f, err := source.Open(name)
		if err != nil {
			return nil, nil, &apkchannel.IOError{Op: "open", Path: name, Err: err}
		}

		return f, f, nil
	}

	bucket, key, err := internal.ParseS3URI(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if key == "" {
		return nil, nil, fmt.Errorf(`%w: "%s" has no key`, ErrInvalidOptions, name)
	}

	client, err := c.s3Client(ctx)
	if err != nil {
		return nil, nil, err
	}

	src, err := source.FromS3(ctx, client, bucket, key, func(opts *source.S3Options) {
		opts.ExpectedBucketOwner = c.loader.ForS3().ExpectedBucketOwner
	})
	if err != nil {
		return nil, nil, &apkchannel.IOError{Op: "open", Path: name, Err: err}
	}

	return src, io.NopCloser(nil), nil
}

// sink returns the sink for the --output location, creating the local directory if needed.
func (c *Command) sink(ctx context.Context) (apkchannel.Sink, error) {
	if !internal.IsS3URI(c.Output) {
		if err := os.MkdirAll(c.Output, 0755); err != nil {
			return nil, &apkchannel.IOError{Op: "mkdir", Path: c.Output, Err: err}
		}

		return &apkchannel.DirSink{Dir: c.Output, NoClobber: c.NoClobber}, nil
	}

	bucket, prefix, err := internal.ParseS3URI(c.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	client, err := c.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	return &apkchannel.S3Sink{
		Client:              client,
		Bucket:              bucket,
		Prefix:              prefix,
		ExpectedBucketOwner: c.loader.ForS3().ExpectedBucketOwner,
		Logger:              log.Default(),
	}, nil
}
