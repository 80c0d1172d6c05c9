package services

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/kendall-kelly/foodcourt-api/config"
)

const webhookArchivePrefix = "webhooks/stripe"

// PayloadArchive stores verified webhook bodies for later audit
type PayloadArchive interface {
	Store(ctx context.Context, key string, payload []byte) error
}

// S3Archive stores payloads in an S3 bucket
type S3Archive struct {
	client *s3.Client
	bucket string
}

// NewPayloadArchive builds the webhook archive from the loaded configuration.
// Without a bucket archiving is disabled.
func NewPayloadArchive(ctx context.Context, cfg *appConfig.Config) (PayloadArchive, error) {
	if cfg == nil || cfg.AWSS3Bucket == "" {
		return NoopArchive{}, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Archive{
		client: s3.NewFromConfig(awsConfig),
		bucket: cfg.AWSS3Bucket,
	}, nil
}

// Store uploads the payload as a JSON object
func (s *S3Archive) Store(ctx context.Context, key string, payload []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// NoopArchive discards payloads
type NoopArchive struct{}

func (NoopArchive) Store(context.Context, string, []byte) error {
	return nil
}

func webhookArchiveKey(eventID string) string {
	return path.Join(webhookArchivePrefix, eventID+".json")
}
