package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Bucket stores documents as objects under a key prefix.
type Bucket struct {
	bucket   *blob.Bucket
	location string
}

// OpenBucket opens the bucket at bucketURL and scopes it to folder.
// Supported schemes are those of the registered gocloud drivers: s3://,
// gs://, file:// and mem://.
func OpenBucket(ctx context.Context, bucketURL, folder string) (*Bucket, error) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return NewBucket(bkt, folder, bucketURL), nil
}

// NewBucket wraps an opened bucket. The returned store owns bkt. display
// is the bucket URL shown to the operator; its query string is dropped.
func NewBucket(bkt *blob.Bucket, folder, display string) *Bucket {
	prefix := strings.TrimSuffix(folder, "/") + "/"
	if i := strings.IndexByte(display, '?'); i >= 0 {
		display = display[:i]
	}
	return &Bucket{
		bucket:   blob.PrefixedBucket(bkt, prefix),
		location: strings.TrimSuffix(display, "/") + "/" + prefix,
	}
}

// Prepare is a no-op: object stores have no directories.
func (b *Bucket) Prepare(_ context.Context) error {
	return nil
}

func (b *Bucket) Exists(ctx context.Context, name string) (bool, error) {
	return b.bucket.Exists(ctx, name)
}

func (b *Bucket) Create(ctx context.Context, name, contentType string) (Writer, error) {
	// Cancelling the writer's context before Close discards the upload.
	wctx, cancel := context.WithCancel(ctx)

	w, err := b.bucket.NewWriter(wctx, name, &blob.WriterOptions{
		ContentType: contentType,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &bucketWriter{w: w, cancel: cancel, name: name}, nil
}

func (b *Bucket) Location() string {
	return b.location
}

func (b *Bucket) Close() error {
	return b.bucket.Close()
}

type bucketWriter struct {
	w      *blob.Writer
	cancel context.CancelFunc
	name   string
	done   bool
}

func (w *bucketWriter) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

func (w *bucketWriter) Commit() error {
	if w.done {
		return errors.New("store: writer already finished")
	}
	w.done = true
	defer w.cancel()

	if err := w.w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.name, err)
	}
	return nil
}

func (w *bucketWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	w.cancel()
	// Close reports the cancellation; the object is not written.
	w.w.Close()
	return nil
}
