// Package blob hands out presigned URLs for image payloads kept in an
// S3-compatible object store. Two backends exist: the AWS SDK (S3Store) and
// minio-go (MinioStore); both speak to the same MinIO or S3 bucket.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Options configure either backend.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Expiry    time.Duration
}

// NewStorageKey returns a fresh object key under the owner's prefix.
func NewStorageKey(ownerID string, now time.Time) string {
	return fmt.Sprintf("users/%s/%d/%d/%d/%v", ownerID, now.Year(), now.Month(), now.Day(), uuid.New())
}

// splitEndpoint turns "http://host:9000/" into ("host:9000", false).
func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
