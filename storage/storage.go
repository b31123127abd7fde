package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when a stored object does not exist
var ErrNotFound = errors.New("object not found")

// Storage interface for exported document storage
type Storage interface {
	// Upload stores an object and returns its storage key
	Upload(ctx context.Context, objectID, filename string, data io.Reader, size int64) (string, error)

	// Download retrieves an object by storage key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by storage key
	Delete(ctx context.Context, key string) error

	// URL returns a link the client can fetch the object from
	URL(ctx context.Context, key string) (string, error)
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

const presignExpiry = time.Hour

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 and MinIO storage
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string

	MinioEndpoint string
	MinioUseSSL   bool
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		return NewS3Storage(cfg)
	case StorageTypeMinio:
		return NewMinioStorage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewStorageFromEnv creates a storage instance from environment variables
func NewStorageFromEnv() (Storage, error) {
	storageType := os.Getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local" // Default to local for development
	}

	cfg := StorageConfig{
		Type: StorageType(storageType),
	}

	switch StorageType(storageType) {
	case StorageTypeLocal:
		localPath := os.Getenv("STORAGE_LOCAL_PATH")
		if localPath == "" {
			localPath = "./storage/documents"
		}
		cfg.LocalPath = localPath
		return NewLocalStorage(cfg.LocalPath)

	case StorageTypeS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1" // Default region
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}

		return NewS3Storage(cfg)

	case StorageTypeMinio:
		cfg.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
		cfg.S3Bucket = os.Getenv("MINIO_BUCKET")
		if cfg.S3Bucket == "" {
			cfg.S3Bucket = "legal-documents"
		}
		cfg.S3Region = os.Getenv("MINIO_REGION")
		cfg.AWSAccessKey = os.Getenv("MINIO_ACCESS_KEY")
		cfg.AWSSecretKey = os.Getenv("MINIO_SECRET_KEY")
		cfg.MinioUseSSL = strings.EqualFold(os.Getenv("MINIO_USE_SSL"), "true")

		return NewMinioStorage(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}

// generateStoragePath builds "<last two chars of id>/<id>_<filename>"
func generateStoragePath(objectID, filename string) string {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filename, ext)
	// Sanitize filename
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "..", "_")
	baseName = replacer.Replace(baseName)
	objectID = replacer.Replace(objectID)

	prefix := objectID
	if len(prefix) > 2 {
		prefix = prefix[len(prefix)-2:]
	}
	return fmt.Sprintf("%s/%s_%s%s", prefix, objectID, baseName, ext)
}

// getContentType determines content type from filename
func getContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
