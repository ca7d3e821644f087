// Package photos stores visit photos in S3-compatible object storage.
package photos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/pkg/config"
)

// Store uploads a photo and returns its public URL.
type Store interface {
	Upload(ctx context.Context, userID, attractionID uuid.UUID, data []byte, mediaType string) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ Store = (*MinioStore)(nil)

type MinioStore struct {
	logger  *zap.Logger
	client  objectPutter
	bucket  string
	baseURL string
}

// NewMinioStore connects and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg config.MinioConfig, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "create bucket %s", cfg.Bucket)
		}
		logger.Info("Created photo bucket", zap.String("bucket", cfg.Bucket))
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + cfg.Endpoint
	}

	return newMinioStore(client, cfg.Bucket, baseURL, logger), nil
}

func newMinioStore(client objectPutter, bucket, baseURL string, logger *zap.Logger) *MinioStore {
	return &MinioStore{
		logger:  logger,
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// ObjectKey lays photos out as visits/<user>/<attraction>-<random>.<ext>.
func ObjectKey(userID, attractionID uuid.UUID, mediaType string) string {
	return fmt.Sprintf("visits/%s/%s-%s.%s", userID, attractionID, uuid.New(), extension(mediaType))
}

func extension(mediaType string) string {
	switch ext := strings.TrimPrefix(mediaType, "image/"); ext {
	case "jpeg", "jpg", "":
		return "jpg"
	default:
		return ext
	}
}

func (s *MinioStore) Upload(ctx context.Context, userID, attractionID uuid.UUID, data []byte, mediaType string) (string, error) {
	key := ObjectKey(userID, attractionID, mediaType)
	ctx, span := otel.Tracer("PhotoStore").Start(ctx, "Upload", trace.WithAttributes(
		attribute.String("bucket", s.bucket),
		attribute.String("object.key", key),
		attribute.Int("object.size", len(data)),
	))
	defer span.End()

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: mediaType})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return "", errors.Wrapf(err, "upload %s", key)
	}

	s.logger.Debug("Visit photo uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return s.baseURL + "/" + url.PathEscape(s.bucket) + "/" + key, nil
}
