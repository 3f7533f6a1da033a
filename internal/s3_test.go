package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		text       string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{text: "s3://bucket/path/to/app.apk", wantBucket: "bucket", wantKey: "path/to/app.apk"},
		{text: "s3://bucket/prefix/", wantBucket: "bucket", wantKey: "prefix/"},
		{text: "s3://bucket", wantBucket: "bucket"},
		{text: "s3://", wantErr: true},
		{text: "/local/app.apk", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}
