package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	pdfhttp "github.com/ligustah/pdfslurp/internal/http"
	"github.com/ligustah/pdfslurp/internal/progress"
	"github.com/ligustah/pdfslurp/internal/store"
)

const (
	defaultWorkers   = 5
	defaultChunkSize = 8 * 1024
)

// acceptedTypes are the content types written to disk.
var acceptedTypes = []string{"application/pdf", "application/octet-stream"}

// Fetcher issues streaming GET requests.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*pdfhttp.Response, error)
}

// Options configures the downloader.
type Options struct {
	// Workers is the number of parallel download workers.
	// Default: 5
	Workers int

	// ChunkSize is the size of each read from the response body.
	// Default: 8KiB
	ChunkSize int

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// Logger receives per-file debug records. Default: slog.Default().
	Logger *slog.Logger
}

// Downloader fetches documents into a store. One Downloader, and the
// Fetcher it holds, is shared by all workers.
type Downloader struct {
	fetcher Fetcher
	store   store.Store
	opts    Options
	log     *slog.Logger
}

// New creates a Downloader writing into st.
func New(fetcher Fetcher, st store.Store, opts Options) *Downloader {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Downloader{
		fetcher: fetcher,
		store:   st,
		opts:    opts,
		log:     log,
	}
}

// Run downloads every job with at most Options.Workers in flight. Outcomes
// are delivered in completion order; the channel is closed once every job
// has produced its outcome. The caller must drain the channel.
func (d *Downloader) Run(ctx context.Context, jobs []Job) <-chan Outcome {
	jobCh := make(chan Job)
	resultCh := make(chan Outcome, d.opts.Workers)

	workers := d.opts.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, d.opts.ChunkSize)
			for job := range jobCh {
				resultCh <- d.download(ctx, job, buf)
			}
		}()
	}

	// Send work in submission order
	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			jobCh <- job
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

// RunAll is Run collecting every outcome.
func (d *Downloader) RunAll(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, 0, len(jobs))
	for o := range d.Run(ctx, jobs) {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// Download processes a single job.
func (d *Downloader) Download(ctx context.Context, job Job) Outcome {
	return d.download(ctx, job, make([]byte, d.opts.ChunkSize))
}

// download never panics and never returns an error: every failure becomes
// a Failed outcome so sibling workers are unaffected.
func (d *Downloader) download(ctx context.Context, job Job, buf []byte) (out Outcome) {
	out = Outcome{Job: job}
	reporter := d.opts.Progress
	if reporter != nil {
		reporter.FileStarted()
	}

	// w is the pending write, if any; it is discarded unless committed.
	var w store.Writer

	defer func() {
		if r := recover(); r != nil {
			out.Kind = Failed
			out.Err = fmt.Errorf("panic: %v", r)
		}
		if w != nil && out.Kind != Succeeded {
			if err := w.Abort(); err != nil {
				d.log.Warn("Could not discard partial file", slog.String("file", job.Filename), slog.Any("error", err))
			}
		}
		d.finish(out)
	}()

	exists, err := d.store.Exists(ctx, job.Filename)
	if err != nil {
		out.Kind, out.Err = Failed, fmt.Errorf("check %s: %w", job.Filename, err)
		return out
	}
	if exists {
		out.Kind = SkippedExists
		return out
	}

	resp, err := d.fetcher.Fetch(ctx, job.Link)
	if err != nil {
		out.Kind, out.Err = Failed, err
		return out
	}
	defer resp.Body.Close()

	out.ContentType = resp.ContentType()

	if err := resp.StatusError(job.Link); err != nil {
		out.Kind, out.Err = Failed, err
		return out
	}

	if !acceptable(resp.MediaType()) {
		out.Kind = SkippedNotPDF
		return out
	}

	w, err = d.store.Create(ctx, job.Filename, out.ContentType)
	if err != nil {
		out.Kind, out.Err = Failed, err
		return out
	}

	n, err := d.copyChunks(w, resp.Body, buf)
	out.Bytes = n
	if err != nil {
		out.Kind, out.Err = Failed, err
		return out
	}

	err = w.Commit()
	if err != nil {
		out.Kind, out.Err = Failed, err
		return out
	}

	out.Kind = Succeeded
	return out
}

// copyChunks streams src into dst one buffer at a time.
func (d *Downloader) copyChunks(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)
			if d.opts.Progress != nil {
				d.opts.Progress.BytesWritten(int64(nw))
			}
			if writeErr != nil {
				return written, fmt.Errorf("write: %w", writeErr)
			}
			if nw != n {
				return written, fmt.Errorf("write: %w", io.ErrShortWrite)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read: %w", readErr)
		}
	}
}

func (d *Downloader) finish(out Outcome) {
	d.log.Debug("Finished",
		slog.String("file", out.Filename),
		slog.String("link", out.Link),
		slog.String("outcome", out.Kind.String()),
		slog.Int64("bytes", out.Bytes),
	)

	reporter := d.opts.Progress
	if reporter == nil {
		return
	}
	switch out.Kind {
	case Succeeded:
		reporter.FileCompleted()
	case Failed:
		reporter.FileFailed()
	default:
		reporter.FileSkipped()
	}
}

// acceptable reports whether a lowercased Content-Type denotes a PDF or
// an opaque binary stream.
func acceptable(mediaType string) bool {
	for _, t := range acceptedTypes {
		if strings.Contains(mediaType, t) {
			return true
		}
	}
	return false
}
