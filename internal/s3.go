package internal

import (
	"fmt"
	"strings"
)

// IsS3URI returns true if text starts with s3://.
func IsS3URI(text string) bool {
	return strings.HasPrefix(text, "s3://")
}

// ParseS3URI parses S3 URIs in format s3://bucket/key.
//
// The key may be empty (s3://bucket or s3://bucket/) in which case the URI refers to the bucket root. Bucket names are
// not validated beyond being non-empty.
func ParseS3URI(text string) (bucket, key string, err error) {
	if !IsS3URI(text) {
		return "", "", fmt.Errorf(`"%s" does not start with s3://`, text)
	}

	bucket, key, _ = strings.Cut(strings.TrimPrefix(text, "s3://"), "/")
	if bucket == "" {
		return "", "", fmt.Errorf(`"%s" has no bucket`, text)
	}

	return bucket, key, nil
}
