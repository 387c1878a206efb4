// Package errs defines common error variables used across the application.
package errs

import "errors"

var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrInvalidURL indicates that the URL field in the request is invalid.
	ErrInvalidURL = errors.New("invalid url field")
)

// Session errors.
var (
	// ErrTaskRunning indicates that an attempt for the same task is already in flight.
	ErrTaskRunning = errors.New("task already running")
	// ErrUnknownTask indicates that the task name is not one of video, audio, thumbnail.
	ErrUnknownTask = errors.New("unknown task")
	// ErrUnknownQuality indicates that the quality label is not in the current format catalog.
	ErrUnknownQuality = errors.New("unknown quality label")
	// ErrNothingToResume indicates that resume was requested with no paused task.
	ErrNothingToResume = errors.New("nothing to resume")
)

// Downloader errors.
var (
	// ErrDownloadCancelled is returned from the progress hook to unwind an engine call.
	ErrDownloadCancelled = errors.New("download cancelled")
	// ErrNoMetadata indicates that the metadata query failed or returned nothing.
	ErrNoMetadata = errors.New("no metadata")
	// ErrNoThumbnail indicates that the metadata has no thumbnail field.
	ErrNoThumbnail = errors.New("no thumbnail")
	// ErrThumbnailStatus indicates a non-200 response while fetching a thumbnail.
	ErrThumbnailStatus = errors.New("unexpected thumbnail response status")
	// ErrEncoderNotFound indicates that no encoder binary could be discovered.
	ErrEncoderNotFound = errors.New("encoder not found")
)

// Dependency errors.
var (
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform has no download url configured.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrUnsupportedArchive indicates that the downloaded archive format is not handled.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no healthy proxies are available.
	ErrNoProxiesAvailable = errors.New("no proxies available")
)
