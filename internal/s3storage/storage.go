package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/CallLogCSV/internal/config"
)

// ContentType is stored with every export object.
const ContentType = "text/csv; charset=utf-8"

// Storage wraps MinIO/S3 interactions for finished CSV exports.
type Storage struct {
	client   *minio.Client
	bucket   string
	region   string
	fileName string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:   client,
		bucket:   cfg.ExportBucket,
		region:   cfg.S3Region,
		fileName: cfg.FileName,
	}, nil
}

// EnsureBucket makes sure the export bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// UploadExport stores a CSV document in one PUT.
func (s *Storage) UploadExport(ctx context.Context, objectKey string, data []byte) error {
	opts := minio.PutObjectOptions{
		ContentType:        ContentType,
		ContentDisposition: contentDisposition(s.fileName),
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("upload export object: %w", err)
	}
	return nil
}

// DownloadExport fetches a stored CSV document.
func (s *Storage) DownloadExport(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get export object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read export object: %w", err)
	}
	return buf, nil
}

// PresignExportURL returns a signed GET URL that downloads the object under
// the configured file name.
func (s *Storage) PresignExportURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", contentDisposition(s.fileName))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign export object: %w", err)
	}
	return u.String(), nil
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
