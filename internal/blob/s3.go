package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/objectkey"
)

// S3Store is the production blob store, speaking the S3 API through minio.
type S3Store struct {
	client *minio.Client
	bucket string
}

// S3Config carries the connection settings for an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewS3Store connects to the configured endpoint and verifies the bucket
// exists.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := &minio.Options{
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	}
	if cfg.AccessKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		opts.Creds = credentials.NewIAM("")
	}

	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("s3 bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist", cfg.Bucket)
	}

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads an object.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// Get downloads a whole object.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateErr(key, err)
	}
	return data, nil
}

// RangeGet downloads an inclusive byte range of an object. The Range
// header is built by objectkey.RangeHeader so the wire form stays pinned
// in one place.
func (s *S3Store) RangeGet(ctx context.Context, key string, startInclusive, endInclusive int64) ([]byte, error) {
	if startInclusive < 0 || startInclusive > endInclusive {
		return nil, fmt.Errorf("s3 range %s: invalid range [%d,%d]", key, startInclusive, endInclusive)
	}
	opts := minio.GetObjectOptions{}
	opts.Set("Range", objectkey.RangeHeader(startInclusive, endInclusive))

	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("s3 range get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateErr(key, err)
	}
	return data, nil
}

// translateErr maps the S3 missing-key error onto ErrNotFound.
func translateErr(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("s3 read %s: %w", key, err)
}
