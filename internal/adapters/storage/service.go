// Package storage archives authorization receipts in S3-compatible object storage.
package storage

import (
	"context"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReceiptStore defines the object storage operations used for receipts.
type ReceiptStore interface {
	// StoreReceipt writes the raw authorization response for a sale.
	StoreReceipt(ctx context.Context, saleID, accessKey string, body []byte) error

	// ReceiptURL returns a presigned URL for the receipt stored under accessKey.
	ReceiptURL(ctx context.Context, saleID, accessKey string) (*PresignedURL, error)

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketReceipts() string
	IsMinIOEnabled() bool
}
