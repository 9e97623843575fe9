package domain

import "context"

// BlobStore is a key-value store of opaque blobs. Session transcripts are
// persisted through it so the backing store can be swapped without touching
// the conversation logic.
type BlobStore interface {
	// Get returns the blob stored at key. found is false when nothing is stored.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Put replaces the blob at key. Readers observe either the previous or
	// the new content, never a partial write.
	Put(ctx context.Context, key string, data []byte) error

	// List returns every key that starts with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the blob at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
