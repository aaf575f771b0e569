package ingest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Store writes raw producer payloads to the archive bucket under
// {subscriptionId}/{timestamp}.xml.
type S3Store struct {
	api    s3iface.S3API
	bucket string
}

func NewS3Store(api s3iface.S3API, bucket string) *S3Store {
	return &S3Store{
		api:    api,
		bucket: bucket,
	}
}

func RawKey(subscriptionID string, timestamp time.Time) string {
	return fmt.Sprintf("%v/%v.xml", subscriptionID, timestamp.UTC().Format("2006-01-02T15:04:05.000"))
}

func (s *S3Store) PutRaw(ctx context.Context, subscriptionID string, timestamp time.Time, body []byte) error {
	_, err := s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(RawKey(subscriptionID, timestamp)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/xml"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive payload for %v: %w", subscriptionID, err)
	}
	return nil
}
