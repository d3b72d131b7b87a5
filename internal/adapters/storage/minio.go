package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-realtime/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrAttachmentNotFound is returned when a message references an object that was never uploaded.
var ErrAttachmentNotFound = errors.New("attachment not found")

const presignTTL = 24 * time.Hour

// MinIOClient checks attachment references against the upload bucket.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinIOClient{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the attachment bucket if it is missing.
func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	slog.Info("MinIO attachment bucket ready", "bucket", m.bucket)
	return nil
}

// VerifyAttachments stats every keyed attachment and fills in size, mime type
// and a presigned download URL. Attachments carrying only an external URL are
// passed through.
func (m *MinIOClient) VerifyAttachments(ctx context.Context, attachments []models.Attachment) error {
	for i := range attachments {
		a := &attachments[i]
		if a.Key == "" {
			continue
		}
		info, err := m.client.StatObject(ctx, m.bucket, a.Key, minio.StatObjectOptions{})
		if err != nil {
			resp := minio.ToErrorResponse(err)
			if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
				return fmt.Errorf("%w: %s", ErrAttachmentNotFound, a.Key)
			}
			return fmt.Errorf("failed to stat attachment %s: %w", a.Key, err)
		}
		a.Size = info.Size
		if a.MimeType == "" {
			a.MimeType = info.ContentType
		}
		if a.URL == "" {
			u, err := m.client.PresignedGetObject(ctx, m.bucket, a.Key, presignTTL, nil)
			if err != nil {
				return fmt.Errorf("failed to presign attachment %s: %w", a.Key, err)
			}
			a.URL = u.String()
		}
	}
	return nil
}
