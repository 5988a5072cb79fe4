package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/FACorreiaa/go-recruiter-hub/config"
)

var _ Storage = (*S3Storage)(nil)

// S3Storage puts uploads into an S3-compatible bucket. A non-empty base
// endpoint points it at MinIO or another compatible store.
type S3Storage struct {
	logger *slog.Logger
	client *s3.Client
	bucket string
}

func NewS3Storage(ctx context.Context, cfg config.UploadConfig, logger *slog.Logger) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKey,
			cfg.S3.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		logger: logger,
		client: client,
		bucket: cfg.S3.Bucket,
	}, nil
}

func (s *S3Storage) Store(ctx context.Context, name string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", name, s.bucket, err)
	}
	s.logger.InfoContext(ctx, "Stored upload", slog.String("bucket", s.bucket), slog.String("key", name))
	return nil
}
