// Package object abstracts where uploaded document bytes live. The worker
// only ever reads; the producer side saves uploads before submitting an
// ingestion job.
package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
// The returned storageKey is the opaque source locator persisted on the
// document.
type ObjectStore interface {
	Save(ctx context.Context, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
