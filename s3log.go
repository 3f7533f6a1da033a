package apkchannel

import (
	"context"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// partLogger logs every successful UploadPart made by manager.Uploader.
//
// UploadPart may be called from any of the uploader's goroutines so the tally is atomic.
type partLogger struct {
	manager.UploadAPIClient
	logger    Logger
	key       string
	partCount int32
	n         atomic.Int32
}

func newPartLogger(client manager.UploadAPIClient, logger Logger, key string, partCount int32) *partLogger {
	return &partLogger{UploadAPIClient: client, logger: logger, key: key, partCount: partCount}
}

func (l *partLogger) UploadPart(ctx context.Context, input *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	output, err := l.UploadAPIClient.UploadPart(ctx, input, optFns...)
	if err == nil {
		if v := l.n.Add(1); v >= l.partCount {
			l.logger.Printf(`uploaded %d/%d parts of "%s"`, v, l.partCount, l.key)
		} else {
			l.logger.Printf(`uploaded %d/%d parts of "%s" so far`, v, l.partCount, l.key)
		}
	}

	return output, err
}

// partCount returns the expected number of parts to upload size bytes with the given part size.
func partCount(size, partSize int64) int32 {
	if partSize <= 0 {
		partSize = manager.DefaultUploadPartSize
	}

	return int32(max(1, (size+partSize-1)/partSize))
}

var _ manager.UploadAPIClient = (*partLogger)(nil)
