package domain

import "errors"

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDownloadFailed    = errors.New("feed download failed")
	ErrSizeLimitExceeded = errors.New("feed exceeds maximum allowed size")
	ErrMalformedFeed     = errors.New("feed is malformed")
	ErrNoActiveSectors   = errors.New("no active sectors configured")
	ErrReconcile         = errors.New("reconciling factors failed")
	ErrRunInProgress     = errors.New("another update run is in progress")
)
