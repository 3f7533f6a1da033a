package apkchannel

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nguyengg/apkchannel/internal/fsutil"
)

// Sink stores rewritten APKs.
type Sink interface {
	// Put stores data under the given name, all at once.
	//
	// Returns a human-readable location of the stored file. Implementations must not leave partial output behind on
	// failure.
	Put(ctx context.Context, name string, data []byte) (location string, err error)
}

// DirSink stores outputs in a local directory.
type DirSink struct {
	// Dir is the directory to write to. It must exist.
	Dir string

	// NoClobber prevents existing files from being replaced. Numeric suffixes are added to the name instead, such as
	// "app-store-2024-01-01-1.apk".
	NoClobber bool

	// Perm is the permission of created files. Defaults to 0644.
	Perm os.FileMode
}

func (s *DirSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	perm := s.Perm
	if perm == 0 {
		perm = 0644
	}

	var (
		location string
		err      error
	)
	if s.NoClobber {
		location, err = fsutil.WriteExclFile(s.Dir, strings.TrimSuffix(name, ".apk"), ".apk", data, perm)
	} else {
		location, err = fsutil.WriteFile(s.Dir, name, data, perm)
	}
	if err != nil {
		return "", &IOError{Op: "write", Path: filepath.Join(s.Dir, name), Err: err}
	}

	return location, nil
}

// S3Sink uploads outputs to S3.
type S3Sink struct {
	// Client is used to upload with manager.Uploader.
	Client manager.UploadAPIClient
	// Bucket is the destination bucket.
	Bucket string
	// Prefix is prepended to the output name to form the key.
	Prefix string
	// ExpectedBucketOwner is passed to every upload call if given.
	ExpectedBucketOwner *string

	// PartSize is the multipart upload part size. Defaults to manager.DefaultUploadPartSize.
	PartSize int64

	// Logger receives a message for every uploaded part of multipart uploads. By default, messages are discarded.
	Logger Logger
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := name
	if s.Prefix != "" {
		key = path.Join(s.Prefix, name)
	}
	location := "s3://" + s.Bucket + "/" + key

	uploader := manager.NewUploader(s.Client, func(u *manager.Uploader) {
		if s.PartSize > 0 {
			u.PartSize = s.PartSize
		}
		if s.Logger != nil {
			u.S3 = newPartLogger(u.S3, s.Logger, key, partCount(int64(len(data)), u.PartSize))
		}
	})

	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:              aws.String(s.Bucket),
		Key:                 aws.String(key),
		Body:                bytes.NewReader(data),
		ContentLength:       aws.Int64(int64(len(data))),
		ContentType:         aws.String("application/vnd.android.package-archive"),
		ExpectedBucketOwner: s.ExpectedBucketOwner,
	}); err != nil {
		return "", &IOError{Op: "upload", Path: location, Err: err}
	}

	return location, nil
}
