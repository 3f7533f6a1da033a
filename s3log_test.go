package apkchannel

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
)

type partClient struct {
	fakeUploadClient
	fail bool
}

func (c *partClient) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if c.fail {
		return nil, errors.New("boom")
	}

	return &s3.UploadPartOutput{}, nil
}

func TestPartLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	client := &partClient{}
	l := newPartLogger(client, log.New(buf, "", 0), "out/app-google.apk", 2)

	_, err := l.UploadPart(context.Background(), &s3.UploadPartInput{})
	assert.NoError(t, err)
	client.fail = true
	_, err = l.UploadPart(context.Background(), &s3.UploadPartInput{})
	assert.Error(t, err)
	client.fail = false
	_, err = l.UploadPart(context.Background(), &s3.UploadPartInput{})
	assert.NoError(t, err)

	assert.Equal(t, "uploaded 1/2 parts of \"out/app-google.apk\" so far\nuploaded 2/2 parts of \"out/app-google.apk\"\n", buf.String())
}

func TestPartCount(t *testing.T) {
	assert.Equal(t, int32(1), partCount(0, 10))
	assert.Equal(t, int32(1), partCount(10, 10))
	assert.Equal(t, int32(2), partCount(11, 10))
	assert.Equal(t, int32(3), partCount(2*manager.DefaultUploadPartSize+1, 0))
}
