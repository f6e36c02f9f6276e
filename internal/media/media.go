package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Kinds of offloaded values. They become the first key segment.
const (
	KindMessageImage = "messages"
	KindGroupAvatar  = "groups"
	KindUserAvatar   = "avatars"
)

var ErrInvalidDataURI = errors.New("invalid data uri")

// Store moves inline media out of the tree.
type Store interface {
	// Offload returns the value to persist in place of value.
	Offload(ctx context.Context, kind, value string) (string, error)
}

// S3Config configures the S3 store. Empty keys fall back to the default AWS credential chain.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// S3Store uploads data: URIs to a bucket.
type S3Store struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Opts...)

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	log.Printf("media store initialized bucket=%s endpoint=%s", cfg.Bucket, cfg.Endpoint)
	return &S3Store{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
	}, nil
}

func (s *S3Store) Offload(ctx context.Context, kind, value string) (string, error) {
	if !IsDataURI(value) {
		return value, nil
	}
	contentType, data, err := DecodeDataURI(value)
	if err != nil {
		return "", err
	}

	key := path.Join(kind, uuid.NewString()+extensionFor(contentType))
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// PassthroughStore keeps values inline.
type PassthroughStore struct{}

func (PassthroughStore) Offload(ctx context.Context, kind, value string) (string, error) {
	return value, nil
}

// IsDataURI reports whether value is a base64 data: URI.
func IsDataURI(value string) bool {
	return strings.HasPrefix(value, "data:") && strings.Contains(value, ";base64,")
}

// DecodeDataURI splits a data:<mime>;base64,<payload> value.
func DecodeDataURI(value string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(value, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", nil, ErrInvalidDataURI
	}
	contentType := strings.TrimSuffix(header, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return contentType, data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

var (
	_ Store = (*S3Store)(nil)
	_ Store = PassthroughStore{}
)
