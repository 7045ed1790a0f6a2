package s3

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesOptions(t *testing.T) {
	_, err := NewClient(Options{Bucket: "b"}, nil)
	assert.ErrorIs(t, err, ErrEndpointRequired)

	_, err = NewClient(Options{Endpoint: "localhost:9000"}, nil)
	assert.ErrorIs(t, err, ErrBucketRequired)

	c, err := NewClient(Options{Endpoint: "http://minio:9000", PublicEndpoint: "https://cdn.example.com", Bucket: " exports "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "exports", c.bucket)
	assert.Equal(t, 24*time.Hour, c.linkTTL)
	assert.Equal(t, "minio:9000", c.client.EndpointURL().Host)
	assert.Equal(t, "cdn.example.com", c.signer.EndpointURL().Host)
	assert.Equal(t, "https", c.signer.EndpointURL().Scheme)
}

func TestUploadRejectsEmptyInput(t *testing.T) {
	c, err := NewClient(Options{Endpoint: "localhost:9000", Bucket: "b"}, nil)
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), "k", nil, "")
	assert.Error(t, err)
	_, err = c.Upload(context.Background(), " / ", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}
