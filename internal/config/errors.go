package config

import "errors"

// Configuration errors.
// These errors are returned by Config.Validate(), Set() and Lookup() and
// can be matched with errors.Is().
var (
	// ErrUnknownKey is returned when a (section, key) pair is not recognised.
	ErrUnknownKey = errors.New("unknown configuration key")

	// ErrInvalidPortTimeout is returned when the port check timeout is not positive.
	ErrInvalidPortTimeout = errors.New("invalid port timeout: must be positive")

	// ErrInvalidPortWorkers is returned when port check concurrency is not positive.
	ErrInvalidPortWorkers = errors.New("invalid port workers: must be positive")

	// ErrInvalidBrowserTimeout is returned when the navigation timeout is not positive.
	ErrInvalidBrowserTimeout = errors.New("invalid browser timeout: must be positive")

	// ErrInvalidScreenshotQuality is returned when the JPEG quality is outside 1-100.
	ErrInvalidScreenshotQuality = errors.New("invalid screenshot quality: must be between 1 and 100")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrMissingRegion is returned when an S3 bucket is configured without a
	// region or endpoint.
	ErrMissingRegion = errors.New("storage.region_name is required when storage.bucket_name is set")

	// ErrIncompleteCredentials is returned when only one of the static S3
	// credentials is configured.
	ErrIncompleteCredentials = errors.New("storage.aws_access_key_id and storage.aws_secret_access_key must be set together")
)
