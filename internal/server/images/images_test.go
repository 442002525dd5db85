package images

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestNewStorageKey(t *testing.T) {
	key := NewStorageKey("issues", time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^issues/2025/7/9/[0-9a-f-]{36}$`), key)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType(pngHeader))
}

func TestMemoryStore_PutGet(t *testing.T) {
	m := NewMemoryStore()

	url, err := m.Put(context.Background(), "issues", []byte("abc"))
	require.NoError(t, err)
	assert.Contains(t, url, "memory://images/issues/")

	b, ok := m.Get(url)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), b)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryStore_FailWith(t *testing.T) {
	m := NewMemoryStore()
	m.FailWith(errors.New("disk full"))

	_, err := m.Put(context.Background(), "issues", []byte("abc"))
	assert.ErrorIs(t, err, common.ErrorBackendUnavailable)
	assert.Equal(t, 0, m.Len())

	m.FailWith(nil)
	_, err = m.Put(context.Background(), "issues", []byte("abc"))
	assert.NoError(t, err)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Put(ctx, "issues", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func stubS3(t *testing.T, put func(in *s3.PutObjectInput) error) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		assert.Equal(t, "http://minio:9000/", *opts.BaseEndpoint)
		assert.True(t, opts.UsePathStyle)
		return &s3.Client{}
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if err := put(in); err != nil {
			return nil, err
		}
		return &s3.PutObjectOutput{}, nil
	}
}

func newTestS3Store() *S3Store {
	return NewS3Store(S3Config{
		User: "minioadmin", Password: "minioadmin", Bucket: "civicsync",
		Region: "us-east-1", BaseEndpoint: "http://minio:9000/",
	})
}

func TestS3Store_Put(t *testing.T) {
	var got *s3.PutObjectInput
	stubS3(t, func(in *s3.PutObjectInput) error {
		got = in
		return nil
	})

	url, err := newTestS3Store().Put(context.Background(), "issues", pngHeader)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "civicsync", aws.ToString(got.Bucket))
	assert.Equal(t, "image/png", aws.ToString(got.ContentType))
	assert.Equal(t, int64(len(pngHeader)), aws.ToInt64(got.ContentLength))
	body, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, body)

	assert.Equal(t, "http://minio:9000/civicsync/"+aws.ToString(got.Key), url)
}

func TestS3Store_PutError(t *testing.T) {
	stubS3(t, func(in *s3.PutObjectInput) error { return errors.New("connection refused") })

	_, err := newTestS3Store().Put(context.Background(), "issues", pngHeader)
	assert.ErrorIs(t, err, common.ErrorBackendUnavailable)
	assert.ErrorContains(t, err, "connection refused")
}

func TestS3Store_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("bad profile")
	}

	_, err := newTestS3Store().Put(context.Background(), "issues", pngHeader)
	assert.ErrorIs(t, err, common.ErrorBackendUnavailable)
}
