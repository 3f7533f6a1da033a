package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client abstracts the S3 APIs that are needed by FromS3.
type S3Client interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options customises FromS3.
type S3Options struct {
	// ExpectedBucketOwner is passed along to every HeadObject and GetObject call if given.
	ExpectedBucketOwner *string
}

// FromS3 returns a Source that uses ranged GetObject to read the S3 object specified by bucket and key.
//
// The object's size is determined once with HeadObject. The given context is used for every subsequent GetObject call
// so cancelling it aborts all reads.
func FromS3(ctx context.Context, client S3Client, bucket, key string, optFns ...func(*S3Options)) (Source, error) {
	opts := &S3Options{}
	for _, fn := range optFns {
		fn(opts)
	}

	headObjectOutput, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		ExpectedBucketOwner: opts.ExpectedBucketOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("determine file size error: %w", err)
	}

	return &s3Source{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		owner:  opts.ExpectedBucketOwner,
		size:   aws.ToInt64(headObjectOutput.ContentLength),
	}, nil
}

type s3Source struct {
	ctx         context.Context
	client      S3Client
	bucket, key string
	owner       *string
	size        int64
}

func (r *s3Source) Size() int64 {
	return r.size
}

func (r *s3Source) ReadAt(p []byte, off int64) (n int, err error) {
	m := int64(len(p))
	if m == 0 {
		return 0, nil
	}
	if off < 0 || off >= r.size {
		return 0, fmt.Errorf("read at %d: %w", off, ErrOutOfRange)
	}

	end := min(r.size-1, off+m-1)
	getObjectOutput, err := r.client.GetObject(r.ctx, &s3.GetObjectInput{
		Bucket:              aws.String(r.bucket),
		Key:                 aws.String(r.key),
		Range:               aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
		ExpectedBucketOwner: r.owner,
	})
	if err != nil {
		return 0, err
	}
	defer getObjectOutput.Body.Close()

	n, err = io.ReadFull(getObjectOutput.Body, p[:end-off+1])
	if err == nil && int64(n) < m {
		err = io.EOF
	}
	return
}
