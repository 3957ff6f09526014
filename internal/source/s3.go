package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client the opener uses
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Opener reads input objects from S3, using ranged GETs to start at the
// resume cursor's byte offset.
type S3Opener struct {
	api    S3API
	logger *zap.Logger
}

func NewS3Opener(api S3API, logger *zap.Logger) *S3Opener {
	return &S3Opener{api: api, logger: logger}
}

func (o *S3Opener) Open(ctx context.Context, loc Location, byteOffset int64) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	}
	if byteOffset > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-", byteOffset))
	}

	out, err := o.api.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("getting s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}

	o.logger.Debug("Opened S3 object",
		zap.String("bucket", loc.Bucket),
		zap.String("key", loc.Key),
		zap.Int64("byte_offset", byteOffset),
	)
	return out.Body, nil
}

func (o *S3Opener) Size(ctx context.Context, loc Location) (int64, error) {
	out, err := o.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return 0, fmt.Errorf("heading s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}
