package storage

import (
	"context"
	"io"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shopfront/catalog/apperrors"
)

// S3 stores assets in an S3-compatible bucket. Path-style addressing keeps
// it working against MinIO and CEPH endpoints, not just AWS.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds a client with static credentials. endpoint may be empty for
// real AWS.
func NewS3(endpoint, region, accessKey, secretKey, bucket string) *S3 {
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return &S3{client: s3.New(opts), bucket: bucket}
}

func (c *S3) Store(ctx context.Context, r io.Reader, size int64, hint string) (string, error) {
	key := assetKey("products", hint)

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", apperrors.Upstream("failed to store asset", err)
	}
	return key, nil
}

func (c *S3) Remove(ctx context.Context, ref string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return apperrors.Upstream("failed to remove asset", err)
	}
	return nil
}
