package store

import (
	"context"
	"io"
)

// Store is a flat namespace of documents shared by all download workers.
type Store interface {
	// Prepare creates the destination if it does not exist yet.
	Prepare(ctx context.Context) error

	// Exists reports whether a document with the given name is present.
	Exists(ctx context.Context, name string) (bool, error)

	// Create starts writing a document. Nothing is visible under name until
	// the returned Writer is committed.
	Create(ctx context.Context, name, contentType string) (Writer, error)

	// Location describes the destination for display.
	Location() string

	Close() error
}

// Writer receives a document's bytes. Exactly one of Commit or Abort must
// be called; both release the underlying handle.
type Writer interface {
	io.Writer

	// Commit flushes the data and publishes it under the final name.
	Commit() error

	// Abort discards everything written so far.
	Abort() error
}
