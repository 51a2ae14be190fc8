package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/errs"
)

// S3Client is the slice of the S3 API the blob store uses.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Blobs stores role code and media in an S3-compatible bucket.
type S3Blobs struct {
	client S3Client
	bucket string
}

// NewS3Blobs returns a blob store over the given bucket.
func NewS3Blobs(client S3Client, bucket string) *S3Blobs {
	return &S3Blobs{client: client, bucket: bucket}
}

var _ Blobs = (*S3Blobs)(nil)

func (s *S3Blobs) Get(ctx context.Context, key api.S3Key) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
	})
	if err != nil {
		return nil, errs.Blob(err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, errs.Blob(err)
	}
	return data, nil
}

func (s *S3Blobs) Put(ctx context.Context, key api.S3Key, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errs.Blob(err)
	}
	return nil
}
