package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"readcast/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// S3API is the subset of the s3 client the bucket needs.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewS3Client builds a client from static credentials. A custom endpoint
// (MinIO, R2 and similar) switches to path-style addressing.
func NewS3Client(opts S3Options) (*s3.Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" || strings.TrimSpace(opts.AccessKeyID) == "" || strings.TrimSpace(opts.SecretAccessKey) == "" {
		return nil, fmt.Errorf("incomplete s3 config: region/access_key_id/secret_access_key are required")
	}
	o := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		UsePathStyle: opts.PathStyle,
	}
	if ep := strings.TrimSuffix(strings.TrimSpace(opts.Endpoint), "/"); ep != "" {
		if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
			ep = "https://" + ep
		}
		o.BaseEndpoint = aws.String(ep)
		o.UsePathStyle = true
	}
	return s3.New(o), nil
}

type S3Bucket struct {
	api    S3API
	bucket string
	prefix string
}

func NewS3Bucket(api S3API, bucket, prefix string) *S3Bucket {
	return &S3Bucket{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (b *S3Bucket) key(name string) (string, error) {
	if !util.ValidFilename(name) {
		return "", fmt.Errorf("%w: %q", util.ErrInvalidFilename, name)
	}
	if b.prefix == "" {
		return name, nil
	}
	return path.Join(b.prefix, name), nil
}

func (b *S3Bucket) Put(ctx context.Context, name string, data []byte, contentType string) error {
	return b.put(ctx, name, bytes.NewReader(data), contentType)
}

func (b *S3Bucket) PutFile(ctx context.Context, name, src, contentType string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact source: %w", err)
	}
	defer f.Close()
	if err := b.put(ctx, name, f, contentType); err != nil {
		return err
	}
	_ = os.Remove(src)
	return nil
}

func (b *S3Bucket) put(ctx context.Context, name string, body io.Reader, contentType string) error {
	key, err := b.key(name)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentType(name)
	}
	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload artifact %s: %w", name, err)
	}
	return nil
}

func (b *S3Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := b.key(name)
	if err != nil {
		return nil, err
	}
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(key)})
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download artifact %s: %w", name, err)
	}
	return out.Body, nil
}

func (b *S3Bucket) Exists(ctx context.Context, name string) (bool, error) {
	key, err := b.key(name)
	if err != nil {
		return false, err
	}
	_, err = b.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(key)})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("head artifact %s: %w", name, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}
