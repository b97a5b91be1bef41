package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// S3Settings locate the bucket. BaseEndpoint points at an S3 compatible
// service (MinIO, R2); PublicBaseURL is the prefix under which stored
// objects are publicly served.
type S3Settings struct {
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	BaseEndpoint  string
	PublicBaseURL string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// S3Provider stores photos in an S3 bucket. It has no image pipeline, so
// the thumbnail is the original object.
type S3Provider struct {
	client  s3API
	bucket  string
	baseURL string
}

func NewS3Provider(ctx context.Context, s S3Settings) (*S3Provider, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is not set", common.ErrConfiguration)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(s.Region)}
	if s.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: aws config: %v", common.ErrConfiguration, err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Provider{client: client, bucket: s.Bucket, baseURL: publicBaseURL(s)}, nil
}

func publicBaseURL(s S3Settings) string {
	switch {
	case s.PublicBaseURL != "":
		return strings.TrimRight(s.PublicBaseURL, "/")
	case s.BaseEndpoint != "":
		return strings.TrimRight(s.BaseEndpoint, "/") + "/" + s.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.Bucket, s.Region)
	}
}

func (p *S3Provider) Name() string { return string(KindS3) }

func (p *S3Provider) Upload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	ext, ok := extensions[opts.MimeType]
	if !ok {
		ext = "bin"
	}
	key := uuid.NewString() + "." + ext
	if folder := strings.Trim(opts.Folder, "/"); folder != "" {
		key = folder + "/" + key
	}

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(opts.MimeType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, providerError(p.Name(), "upload", err)
	}

	url := p.objectURL(key)
	out := &UploadResult{CloudID: key, URL: url, ThumbnailURL: url}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		out.Width, out.Height = &cfg.Width, &cfg.Height
	}
	return out, nil
}

func (p *S3Provider) Delete(ctx context.Context, cloudID string, _ DeleteOptions) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(cloudID),
	})
	if err != nil {
		return providerError(p.Name(), "delete", err)
	}
	return nil
}

// Thumbnail ignores the box: there is no resizing on plain S3.
func (p *S3Provider) Thumbnail(cloudID string, _ ThumbnailOptions) (string, error) {
	return p.objectURL(cloudID), nil
}

func (p *S3Provider) objectURL(key string) string {
	return p.baseURL + "/" + key
}
