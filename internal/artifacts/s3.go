package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/urlutil"
)

// S3Store uploads artifacts to an S3-compatible bucket.
type S3Store struct {
	client     *s3.Client
	bucketName string
	endpoint   string
}

// S3Config holds the settings for NewS3Store.
type S3Config struct {
	// Endpoint is the S3 endpoint URL. Leave empty for AWS S3.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// UsePathStyle is needed for most S3-compatible services and for gofakes3.
	UsePathStyle bool
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "load AWS config", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3StoreFromClient(client, cfg.BucketName, cfg.Endpoint), nil
}

// NewS3StoreFromClient wraps an existing client, e.g. one pointed at gofakes3.
func NewS3StoreFromClient(client *s3.Client, bucketName, endpoint string) *S3Store {
	return &S3Store{
		client:     client,
		bucketName: bucketName,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
	}
}

func (s *S3Store) Put(ctx context.Context, key string, content []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return objectErr("put object", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &notFound) {
			return nil, errs.New(errs.NotFound, fmt.Sprintf("artifact not found: %q", key))
		}
		return nil, objectErr("get object", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("artifacts: read object body %q: %w", key, err)
	}
	return data, nil
}

// Location returns an s3:// URI, or a path-style URL when a custom endpoint
// is configured.
func (s *S3Store) Location(key string) string {
	if s.endpoint != "" {
		return urlutil.BuildAbsolute(s.endpoint, s.bucketName+"/"+key)
	}
	return "s3://" + s.bucketName + "/" + key
}

// BucketName returns the configured bucket.
func (s *S3Store) BucketName() string {
	return s.bucketName
}

// objectErr maps S3 credential and policy rejections to PermissionDenied.
func objectErr(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return errs.Wrap(errs.PermissionDenied, fmt.Sprintf("artifacts: %s %q", op, key), err)
		}
	}
	return fmt.Errorf("artifacts: %s %q: %w", op, key, err)
}
