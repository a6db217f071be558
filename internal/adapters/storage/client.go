package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pos_invoicing_backend/platform/logger"
)

const (
	// PresignedURLTTL is the default expiration time for presigned URLs (15 minutes).
	PresignedURLTTL = 15 * time.Minute

	receiptContentType = "application/json"
)

// MinIOService implements ReceiptStore using MinIO.
type MinIOService struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

var _ ReceiptStore = (*MinIOService)(nil)

// NewMinIOService creates a new MinIO receipt archive.
func NewMinIOService(cfg Config, log *logger.Logger) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}
	if cfg.GetMinioBucketReceipts() == "" {
		return nil, fmt.Errorf("receipts bucket is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetMinioBucketReceipts(),
		log:    log,
	}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// StoreReceipt uploads body under the sale's folder.
func (s *MinIOService) StoreReceipt(ctx context.Context, saleID, accessKey string, body []byte) error {
	if err := ValidateReceiptBody(body); err != nil {
		return err
	}
	fileKey, err := ReceiptKey(saleID, accessKey)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, fileKey, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: receiptContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload receipt %s: %w", fileKey, err)
	}
	s.log.Info("authorization receipt archived", "sale_id", saleID, "file_key", fileKey, "bytes", len(body))
	return nil
}

// ReceiptURL creates a presigned URL for downloading a stored receipt.
func (s *MinIOService) ReceiptURL(ctx context.Context, saleID, accessKey string) (*PresignedURL, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("access key is required to locate a receipt")
	}
	fileKey, err := ReceiptKey(saleID, accessKey)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(PresignedURLTTL)
	reqParams := make(url.Values)
	reqParams.Set("response-content-type", receiptContentType)

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, fileKey, PresignedURLTTL, reqParams)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}
