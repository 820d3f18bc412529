package s3

import (
	"bytes"
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// ObjectAPI is the slice of the S3 client the stores use.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// RenderFunc serializes a result for upload.
type RenderFunc func(domain.ReviewResult) ([]byte, error)

// ReportSink uploads the rendered review to a bucket, keyed by run date.
type ReportSink struct {
	client ObjectAPI
	bucket string
	format string
	render RenderFunc
}

func NewReportSink(client ObjectAPI, bucket, format string, render RenderFunc) *ReportSink {
	return &ReportSink{
		client: client,
		bucket: bucket,
		format: format,
		render: render,
	}
}

func (s *ReportSink) Write(ctx context.Context, result domain.ReviewResult) error {
	data, err := s.render(result)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("access_review_%s.%s", result.GeneratedAt.Format("2006-01-02"), s.format)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(data),
		ContentType: awssdk.String(contentType(s.format)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report %s: %w", key, err)
	}
	return nil
}

func contentType(format string) string {
	if format == "json" {
		return "application/json"
	}
	return "text/csv"
}
