package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	repo "storefront/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// テストで差し替える
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // MinIOなど。空ならAWS
	AccessKey string
	SecretKey string
	MaxBytes  int64
}

// S3互換ストレージに保存し、公開URLを返す
type S3ImageStorage struct {
	client   s3PutAPI
	bucket   string
	baseURL  string
	maxBytes int64
}

func NewS3ImageStorage(ctx context.Context, c S3Config) (*S3ImageStorage, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3ImageStorage(client, c), nil
}

func newS3ImageStorage(client s3PutAPI, c S3Config) *S3ImageStorage {
	base := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
	if c.Endpoint != "" {
		base = strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
	}
	return &S3ImageStorage{client: client, bucket: c.Bucket, baseURL: base, maxBytes: c.MaxBytes}
}

var _ repo.ImageStorage = (*S3ImageStorage)(nil)

func (s *S3ImageStorage) Save(ctx context.Context, filename string, contentType string, r io.Reader) (string, error) {
	name, err := ObjectName(filename, contentType)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r, s.maxBytes)
	if err != nil {
		return "", err
	}

	key := "images/" + name
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(normalizeContentType(contentType)),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}
