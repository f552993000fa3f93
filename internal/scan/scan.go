package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ligustah/pdfslurp/internal/downloader"
	pdfhttp "github.com/ligustah/pdfslurp/internal/http"
	"github.com/ligustah/pdfslurp/internal/links"
	"github.com/ligustah/pdfslurp/internal/naming"
	"github.com/ligustah/pdfslurp/internal/progress"
	"github.com/ligustah/pdfslurp/internal/report"
	"github.com/ligustah/pdfslurp/internal/store"
)

var (
	// ErrInvalidTarget is returned for targets that are not absolute
	// http(s) URLs. Nothing is fetched or created in that case.
	ErrInvalidTarget = errors.New("invalid target URL")

	// ErrStorage is returned when the destination cannot be opened or
	// prepared.
	ErrStorage = errors.New("storage unavailable")
)

// PageFetchError reports that the target page could not be retrieved or
// parsed. Nothing is scheduled when it occurs.
type PageFetchError struct {
	URL string
	Err error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("fetch page %s: %v", e.URL, e.Err)
}

func (e *PageFetchError) Unwrap() error {
	return e.Err
}

// Transport fetches the page and the documents it links to.
type Transport interface {
	downloader.Fetcher
	Get(ctx context.Context, url string) (*pdfhttp.Response, error)
}

// StoreOpener opens the destination for the named folder.
type StoreOpener func(ctx context.Context, folder string) (store.Store, error)

// Options configures a Scanner.
type Options struct {
	// Workers bounds the number of concurrent downloads.
	// Default: 5
	Workers int

	// ChunkSize is the streaming chunk size.
	// Default: 8KiB
	ChunkSize int

	// Disambiguate gives colliding file names a short URL hash suffix.
	Disambiguate bool

	// Progress enables the live progress line.
	Progress bool

	// ProgressOutput receives progress output.
	// Default: os.Stderr
	ProgressOutput io.Writer

	// OpenStore opens the destination. Required for Run.
	OpenStore StoreOpener

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Result describes one run.
type Result struct {
	Target      *url.URL
	Folder      string
	Location    string
	Links       []string
	Assignments []naming.Assignment
	Collisions  []naming.Collision

	// Report is nil until downloads have been attempted.
	Report *report.Report
}

// Scanner runs scans with one shared Transport.
type Scanner struct {
	transport Transport
	opts      Options
	log       *slog.Logger
}

// New creates a Scanner.
func New(transport Transport, opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{transport: transport, opts: opts, log: log}
}

// ParseTarget validates raw as an absolute http or https URL.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidTarget, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidTarget, raw)
	}
	return u, nil
}

// Discover fetches target and returns the sorted, deduplicated document
// links found on it.
func (s *Scanner) Discover(ctx context.Context, target *url.URL) ([]string, error) {
	s.log.Info("Fetching page", slog.String("url", target.String()))

	resp, err := s.transport.Get(ctx, target.String())
	if err != nil {
		return nil, &PageFetchError{URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	found, err := links.Extract(resp.Body, resp.ContentType(), target)
	if err != nil {
		return nil, &PageFetchError{URL: target.String(), Err: err}
	}

	s.log.Info("Found document links", slog.Int("count", len(found)))
	return found, nil
}

// Plan validates raw, discovers its links and assigns file names without
// touching any storage.
func (s *Scanner) Plan(ctx context.Context, raw string) (*Result, error) {
	target, err := ParseTarget(raw)
	if err != nil {
		return nil, err
	}

	found, err := s.Discover(ctx, target)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Target: target,
		Folder: naming.Folder(target),
		Links:  found,
	}
	res.Assignments, res.Collisions = naming.Plan(found, s.opts.Disambiguate)

	for _, c := range res.Collisions {
		s.log.Warn("Links share a file name",
			slog.String("file", c.Filename),
			slog.Any("links", c.Links),
			slog.Bool("disambiguated", s.opts.Disambiguate),
		)
	}
	return res, nil
}

// Run performs a full scan of raw. A page with no document links is not
// an error: the result then has an empty Report and no storage is touched.
func (s *Scanner) Run(ctx context.Context, raw string) (*Result, error) {
	res, err := s.Plan(ctx, raw)
	if err != nil {
		return nil, err
	}

	if len(res.Links) == 0 {
		s.log.Info("No PDF links found", slog.String("url", res.Target.String()))
		res.Report = report.Summarize(nil)
		return res, nil
	}

	if s.opts.OpenStore == nil {
		return nil, fmt.Errorf("%w: no destination configured", ErrStorage)
	}
	st, err := s.opts.OpenStore(ctx, res.Folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer st.Close()

	if err := st.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	res.Location = st.Location()

	jobs := make([]downloader.Job, len(res.Assignments))
	for i, a := range res.Assignments {
		jobs[i] = downloader.Job{Link: a.Link, Filename: a.Filename}
	}

	var reporter *progress.Reporter
	if s.opts.Progress {
		reporter = progress.NewReporter(progress.Options{
			TotalFiles:  len(jobs),
			Workers:     s.opts.Workers,
			Output:      s.opts.ProgressOutput,
			SourceURL:   res.Target.String(),
			Destination: res.Location,
		})
		reporter.Start()
	}

	d := downloader.New(s.transport, st, downloader.Options{
		Workers:   s.opts.Workers,
		ChunkSize: s.opts.ChunkSize,
		Progress:  reporter,
		Logger:    s.log,
	})

	s.log.Info("Downloading",
		slog.Int("files", len(jobs)),
		slog.String("destination", res.Location),
	)
	res.Report = report.Collect(d.Run(ctx, jobs))

	if reporter != nil {
		reporter.Stop()
	}
	return res, nil
}
