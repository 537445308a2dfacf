package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/darklight/internal/config"
)

var (
	// ErrEmptyArtifact is returned when there is no data to store.
	ErrEmptyArtifact = errors.New("artifact is empty")

	// ErrInvalidID is returned for crawl ids that cannot form a key.
	ErrInvalidID = errors.New("invalid artifact id")
)

// ContentType is the MIME type of stored screenshots.
const ContentType = "image/jpeg"

// Backend identifies where artifacts are written.
type Backend int

const (
	// BackendLocal writes files below a base directory.
	BackendLocal Backend = iota
	// BackendS3 uploads objects to a bucket.
	BackendS3
)

// String returns the backend name used in logs.
func (b Backend) String() string {
	switch b {
	case BackendLocal:
		return "local"
	case BackendS3:
		return "s3"
	default:
		return "unknown"
	}
}

// Store persists artifact bytes and returns a reference to them.
type Store interface {
	Store(ctx context.Context, data []byte, id string) (string, error)
	Backend() Backend
}

// Key returns the storage key of the screenshot for crawl id.
func Key(id string) string {
	return "screenshot/" + id + ".jpg"
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// BackendFor resolves the backend selected by cfg.
func BackendFor(cfg *config.Config) Backend {
	if cfg.Read("storage", "bucket_name") != "" {
		return BackendS3
	}
	return BackendLocal
}

// New builds the Store selected by cfg. The local directory is never
// touched when S3 is selected.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch BackendFor(cfg) {
	case BackendS3:
		s3cfg := S3Config{
			Bucket:          cfg.Read("storage", "bucket_name"),
			Region:          cfg.Read("storage", "region_name"),
			AccessKeyID:     cfg.Read("storage", "aws_access_key_id"),
			SecretAccessKey: cfg.Read("storage", "aws_secret_access_key"),
			Endpoint:        cfg.Read("storage", "endpoint_url"),
		}
		uploader, err := NewS3Uploader(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		logger.Debug("artifact backend selected", "backend", BackendS3, "bucket", s3cfg.Bucket)
		return NewS3Store(s3cfg, uploader), nil
	default:
		dir := cfg.Read("storage", "dir")
		logger.Debug("artifact backend selected", "backend", BackendLocal, "dir", dir)
		return NewLocalStore(dir), nil
	}
}
