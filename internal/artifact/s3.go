package artifact

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds the bucket settings of the S3 backend.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the AWS endpoint for S3-compatible stores such
	// as MinIO. Path-style addressing is used when it is set.
	Endpoint string
}

// EndpointURL returns the base URL objects are addressed under.
func (c S3Config) EndpointURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return "https://s3." + c.Region + ".amazonaws.com"
}

// Uploader puts one object into a bucket.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string, public bool) error
}

// S3Store uploads artifacts through an Uploader.
type S3Store struct {
	cfg      S3Config
	uploader Uploader
}

// NewS3Store returns a store that uploads to cfg.Bucket.
func NewS3Store(cfg S3Config, uploader Uploader) *S3Store {
	return &S3Store{cfg: cfg, uploader: uploader}
}

// Backend returns BackendS3.
func (s *S3Store) Backend() Backend {
	return BackendS3
}

// Store uploads data as a publicly readable JPEG and returns
// {endpoint}/{bucket}/screenshot/{id}.jpg.
func (s *S3Store) Store(ctx context.Context, data []byte, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyArtifact
	}

	key := Key(id)
	if err := s.uploader.Upload(ctx, s.cfg.Bucket, key, data, ContentType, true); err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, s.cfg.Bucket, err)
	}
	return s.cfg.EndpointURL() + "/" + s.cfg.Bucket + "/" + key, nil
}

// S3Uploader is the AWS SDK implementation of Uploader.
type S3Uploader struct {
	client *s3.Client
}

// NewS3Uploader loads the AWS configuration for cfg. Static credentials are
// used when both keys are set; otherwise the default credential chain applies.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	} else {
		// S3-compatible stores ignore the region, but the SDK requires one.
		opts = append(opts, awsconfig.WithRegion("us-east-1"))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client}, nil
}

// Upload implements Uploader with a single PutObject call.
func (u *S3Uploader) Upload(ctx context.Context, bucket, key string, body []byte, contentType string, public bool) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if public {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	_, err := u.client.PutObject(ctx, input)
	return err
}
