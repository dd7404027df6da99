package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// PhotoSigner turns stored media references into short-lived download URLs.
type PhotoSigner struct {
	client   *minio.Client
	bucket   string
	endpoint string
	ttl      time.Duration
	logger   *zap.Logger
}

func NewPhotoSigner(ctx context.Context, cfg *config.MinIOConfig, logger *zap.Logger) (*PhotoSigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	logger = logger.Named("photo_signer")
	logger.Info("media bucket ready", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return &PhotoSigner{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: client.EndpointURL().String(),
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// SignedURL presigns rawURL when it points into the media bucket. Foreign
// URLs are returned unchanged.
func (s *PhotoSigner) SignedURL(ctx context.Context, rawURL string) (string, error) {
	key, ok := objectKey(rawURL, s.endpoint, s.bucket)
	if !ok {
		return rawURL, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", s.bucket, key, err)
	}
	s.logger.Debug("presigned", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return u.String(), nil
}

// objectKey extracts the object key from a bucket URL, an s3:// URI or a bare
// key.
func objectKey(rawURL, endpoint, bucket string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	if rest, ok := strings.CutPrefix(rawURL, "s3://"+bucket+"/"); ok {
		return rest, rest != ""
	}
	if rest, ok := strings.CutPrefix(rawURL, strings.TrimSuffix(endpoint, "/")+"/"+bucket+"/"); ok {
		return rest, rest != ""
	}
	if strings.Contains(rawURL, "://") {
		return "", false
	}
	return strings.TrimPrefix(rawURL, "/"), true
}
