package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/vocdoni/acpoll/log"
)

// S3Config holds the configuration of the S3 compatible archive storage.
type S3Config struct {
	Enabled   bool
	Public    bool
	HostBase  string
	AccessKey string
	SecretKey string
	Space     string
	Prefix    string
}

// NewDefaultS3Config returns a new S3Config with default values
func NewDefaultS3Config() *S3Config {
	return &S3Config{
		HostBase: "ams3.digitaloceanspaces.com",
		Space:    "acpoll",
		Prefix:   "archive",
	}
}

// S3Archive stores archive files in an S3 space under a key prefix.
type S3Archive struct {
	client *s3.Client
	config *S3Config
}

// NewS3Archive connects to the configured space and checks it is reachable.
func NewS3Archive(ctx context.Context, cfg *S3Config) (*S3Archive, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	sdkConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		// Required by the SDK, ignored by S3 compatible providers.
		config.WithRegion("us-east-1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	a := &S3Archive{
		client: s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
			o.BaseEndpoint = aws.String("https://" + cfg.HostBase)
			o.UsePathStyle = true
		}),
		config: cfg,
	}
	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Space)}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("s3 space %s: %s: %s", cfg.Space, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return nil, fmt.Errorf("s3 space %s unreachable: %w", cfg.Space, err)
	}
	log.Infow("S3 archive ready", "host", cfg.HostBase, "space", cfg.Space, "prefix", cfg.Prefix)
	return a, nil
}

// Put uploads a JSON archive file, recording its checksum as object
// metadata, and returns the object key.
func (a *S3Archive) Put(ctx context.Context, name string, data []byte, sha256sum string) (string, error) {
	key := path.Join(a.config.Prefix, name)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Space),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"sha256": sha256sum},
	}
	if a.config.Public {
		input.ACL = s3types.ObjectCannedACLPublicRead
	}
	if _, err := a.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Debugw("archive file uploaded", "key", key, "bytes", len(data))
	return key, nil
}
