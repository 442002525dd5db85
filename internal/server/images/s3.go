package images

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/civicsync/internal/common"
)

// seams for tests
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Config is the subset of the server config the S3 store needs.
type S3Config struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store writes images to an S3-compatible bucket (MinIO in development)
// using path-style addressing.
type S3Store struct {
	cfg S3Config

	once      sync.Once
	client    *s3.Client
	clientErr error
}

func NewS3Store(cfg S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	s.once.Do(func() {
		cfg, err := loadDefaultAWSConfig(ctx,
			config.WithRegion(s.cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s.cfg.User,
				s.cfg.Password,
				"",
			)))
		if err != nil {
			s.clientErr = err
			return
		}

		s.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
			o.UsePathStyle = true
		})
	})
	return s.client, s.clientErr
}

// ObjectURL is the public path-style URL of key.
func (s *S3Store) ObjectURL(key string) string {
	return strings.TrimRight(s.cfg.BaseEndpoint, "/") + "/" + s.cfg.Bucket + "/" + key
}

func (s *S3Store) Put(ctx context.Context, prefix string, data []byte) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: s3 config: %w", common.ErrorBackendUnavailable, err)
	}

	key := NewStorageKey(prefix, time.Now())
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(ContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: s3 put: %w", common.ErrorBackendUnavailable, err)
	}

	return s.ObjectURL(key), nil
}
