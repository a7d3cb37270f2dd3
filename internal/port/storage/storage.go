package storage

import "context"

// ObjectStorage is the image store behind publish and delete. Upload returns
// the public URL of the stored object.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}
