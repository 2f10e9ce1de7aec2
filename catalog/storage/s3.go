package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Args struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	Timeout   time.Duration
}

type s3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Storage struct {
	client   s3Client
	uploader s3Uploader
	bucket   string
	prefix   string
	timeout  time.Duration
}

func NewS3Storage(ctx context.Context, args S3Args) (Storage, error) {
	if args.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(args.Region)}
	if args.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(args.AccessKey, args.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if args.Endpoint != "" {
			// S3 compatible stores like minio are addressed by path.
			o.BaseEndpoint = aws.String(args.Endpoint)
			o.UsePathStyle = true
		}
	})

	slog.Info("creating new s3 storage", "bucket", args.Bucket, "prefix", args.Prefix, "endpoint", args.Endpoint)

	return newS3Storage(client, manager.NewUploader(client), args), nil
}

func newS3Storage(client s3Client, uploader s3Uploader, args S3Args) *S3Storage {
	timeout := args.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	return &S3Storage{
		client:   client,
		uploader: uploader,
		bucket:   args.Bucket,
		prefix:   strings.Trim(args.Prefix, "/"),
		timeout:  timeout,
	}
}

func (s *S3Storage) key(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %v", ErrInvalidStoragePath, p)
	}
	return strings.TrimPrefix(path.Join(s.prefix, clean), "/"), nil
}

func (s *S3Storage) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// cancelOnClose ties the request context to the lifetime of the object body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func (s *S3Storage) Read(p string) (io.ReadCloser, error) {
	key, err := s.key(p)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.requestContext()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		cancel()
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %v", ErrFileNotFound, p)
		}
		slog.Error("error reading object from s3", "bucket", s.bucket, "key", key, "error", err)
		return nil, fmt.Errorf("error reading object %v: %w", p, err)
	}

	return &cancelOnClose{ReadCloser: out.Body, cancel: cancel}, nil
}

func (s *S3Storage) Write(p string, data io.Reader) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key), Body: data})
	if err != nil {
		slog.Error("error writing object to s3", "bucket", s.bucket, "key", key, "error", err)
		return fmt.Errorf("error writing object %v: %w", p, err)
	}
	return nil
}

func (s *S3Storage) Delete(p string) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil && !isNotFound(err) {
		slog.Error("error deleting object from s3", "bucket", s.bucket, "key", key, "error", err)
		return fmt.Errorf("error deleting object %v: %w", p, err)
	}
	return nil
}

func (s *S3Storage) Exists(p string) (bool, error) {
	key, err := s.key(p)
	if err != nil {
		return false, err
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	slog.Error("error checking if object exists", "bucket", s.bucket, "key", key, "error", err)
	return false, fmt.Errorf("error checking if object %v exists: %w", p, err)
}

func (s *S3Storage) Usage() (UsageStats, error) {
	return UsageStats{}, ErrUsageNotSupported
}

func (s *S3Storage) Location() string {
	if s.prefix == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + s.prefix
}
