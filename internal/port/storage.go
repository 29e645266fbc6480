package port

import "context"

// ObjectStorage stores blobs in a single bucket chosen at construction.
type ObjectStorage interface {
	// Put writes body under key and returns the object's location.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}
