package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// R2Config holds the bucket settings for an S3-compatible store.
// Endpoint overrides the Cloudflare R2 endpoint derived from AccountID.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	Prefix          string
}

// objectAPI is the subset of *s3.Client used by R2Store.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// R2Store keeps artifacts in a Cloudflare R2 (or any S3-compatible) bucket.
type R2Store struct {
	client objectAPI
	bucket string
	prefix string
}

// NewR2Store builds an S3 client for cfg.
func NewR2Store(ctx context.Context, cfg R2Config) (*R2Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("r2: bucket is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, errors.New("r2: account id or endpoint is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return newR2Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newR2Store(client objectAPI, bucket, prefix string) *R2Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &R2Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *R2Store) key(id string) string { return s.prefix + id }

func (s *R2Store) Put(ctx context.Context, id string, a model.Artifact) error {
	if id == "" {
		return errors.New("empty artifact id")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(a.Data),
		ContentLength: aws.Int64(int64(len(a.Data))),
		ContentType:   aws.String(a.MIMEType()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

func (s *R2Store) Get(ctx context.Context, id string) (model.Artifact, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return model.Artifact{}, ErrNotFound
		}
		return model.Artifact{}, fmt.Errorf("failed to download from R2: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("read R2 object: %w", err)
	}
	format := model.FormatPNG
	if ct := aws.ToString(out.ContentType); ct != "" {
		if f, err := model.FormatFromMIME(ct); err == nil {
			format = f
		}
	}
	return model.Artifact{Format: format, Data: data}, nil
}
