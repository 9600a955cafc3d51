package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the settings of an S3-compatible store such as Supabase Storage
type S3Config struct {
	EndpointURL     string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Fetcher reads s3://bucket/key references
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher creates a path-style S3 client
func NewS3Fetcher(ctx context.Context, cfg S3Config) (*S3Fetcher, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(ctx,
		aws_config.WithRegion(cfg.Region),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		// Supabase and MinIO do not serve virtual-hosted buckets
		o.UsePathStyle = true
	})

	return &S3Fetcher{client: client}, nil
}

// Fetch downloads the referenced object
func (s *S3Fetcher) Fetch(ctx context.Context, ref string) (*Blob, error) {
	bucket, key, err := parseBlobRef(ref, SchemeS3)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body)
	if err != nil {
		return nil, err
	}

	return &Blob{Data: data, ContentType: aws.ToString(out.ContentType)}, nil
}
