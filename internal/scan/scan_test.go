package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligustah/pdfslurp/internal/downloader"
	pdfhttp "github.com/ligustah/pdfslurp/internal/http"
	"github.com/ligustah/pdfslurp/internal/naming"
	"github.com/ligustah/pdfslurp/internal/store"
)

const indexPage = `<html><body>
<a href="report.pdf">Report</a>
<a href="/docs/x?ver=2">Download PDF</a>
<a href="/about.html">About</a>
<a href="/page.pdf">Not really a PDF</a>
<a href="/missing.pdf">Gone</a>
</body></html>`

type site struct {
	server *httptest.Server
	hits   atomic.Int32
}

func newSite(t *testing.T, index string) *site {
	t.Helper()

	s := &site{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		switch r.URL.Path {
		case "/", "/index.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, index)
		case "/report.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			io.WriteString(w, "%PDF-1.4 report")
		case "/docs/x":
			w.Header().Set("Content-Type", "application/octet-stream")
			io.WriteString(w, "%PDF-1.4 x")
		case "/page.pdf":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, "<html></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.server.Close)
	return s
}

func testTransport() *pdfhttp.Client {
	opts := pdfhttp.DefaultOptions()
	opts.Timeout = 2 * time.Second
	opts.RetryBackoff = 10 * time.Millisecond
	return pdfhttp.NewClient(opts)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStores opens Local stores on a shared in-memory filesystem and
// records the folders requested.
type memStores struct {
	fs     afero.Fs
	opened []string
}

func (m *memStores) open(_ context.Context, folder string) (store.Store, error) {
	m.opened = append(m.opened, folder)
	return store.NewLocalWithFS(m.fs, filepath.Join("/work", folder)), nil
}

func newScanner(stores *memStores, workers int) *Scanner {
	return New(testTransport(), Options{
		Workers:   workers,
		OpenStore: stores.open,
		Logger:    quietLogger(),
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	s := newSite(t, indexPage)
	stores := &memStores{fs: afero.NewMemMapFs()}

	res, err := newScanner(stores, 3).Run(ctx, s.server.URL+"/")
	require.NoError(t, err)

	folder := naming.Folder(res.Target)
	assert.Equal(t, folder, res.Folder)
	assert.Equal(t, []string{folder}, stores.opened)
	assert.Equal(t, filepath.Join("/work", folder), res.Location)

	assert.Equal(t, []string{
		s.server.URL + "/docs/x?ver=2",
		s.server.URL + "/missing.pdf",
		s.server.URL + "/page.pdf",
		s.server.URL + "/report.pdf",
	}, res.Links)

	r := res.Report
	require.NotNil(t, r)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Succeeded)
	require.Len(t, r.SkippedNotPDF, 1)
	assert.Equal(t, "page.pdf", r.SkippedNotPDF[0].Filename)
	require.Len(t, r.Failed, 1)
	assert.Equal(t, "missing.pdf", r.Failed[0].Filename)
	assert.Contains(t, r.Failed[0].Err.Error(), "404")

	data, err := afero.ReadFile(stores.fs, filepath.Join("/work", folder, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 report", string(data))

	data, err = afero.ReadFile(stores.fs, filepath.Join("/work", folder, "x.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 x", string(data))

	for _, name := range []string{"page.pdf", "missing.pdf"} {
		ok, err := afero.Exists(stores.fs, filepath.Join("/work", folder, name))
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
}

func TestRunTwiceSkipsEverything(t *testing.T) {
	ctx := context.Background()
	page := `<a href="report.pdf">Report</a><a href="/docs/x?ver=2">Download PDF</a>`
	s := newSite(t, page)
	stores := &memStores{fs: afero.NewMemMapFs()}
	scanner := newScanner(stores, 2)

	first, err := scanner.Run(ctx, s.server.URL)
	require.NoError(t, err)
	assert.True(t, first.Report.AllSucceeded())

	before := s.hits.Load()
	second, err := scanner.Run(ctx, s.server.URL)
	require.NoError(t, err)

	assert.Equal(t, 2, second.Report.Total)
	assert.Len(t, second.Report.SkippedExists, 2)
	assert.Equal(t, int32(1), s.hits.Load()-before, "only the page itself should be fetched")
}

func TestRunConcurrencyDoesNotChangeOutcomes(t *testing.T) {
	ctx := context.Background()
	s := newSite(t, indexPage)

	outcomes := func(workers int) []string {
		stores := &memStores{fs: afero.NewMemMapFs()}
		res, err := newScanner(stores, workers).Run(ctx, s.server.URL)
		require.NoError(t, err)

		var out []string
		for _, list := range [][]downloader.Outcome{res.Report.SkippedExists, res.Report.SkippedNotPDF, res.Report.Failed} {
			for _, o := range list {
				out = append(out, o.Filename+"="+o.Kind.String())
			}
		}
		return append(out, fmt.Sprintf("succeeded=%d", res.Report.Succeeded))
	}

	assert.Equal(t, outcomes(1), outcomes(5))
}

func TestRunNoLinks(t *testing.T) {
	s := newSite(t, `<html><body><a href="/about.html">About</a></body></html>`)
	stores := &memStores{fs: afero.NewMemMapFs()}

	res, err := newScanner(stores, 2).Run(context.Background(), s.server.URL)
	require.NoError(t, err)

	assert.Empty(t, res.Links)
	assert.Equal(t, 0, res.Report.Total)
	assert.Empty(t, stores.opened, "no destination should be opened")
}

func TestRunPageFetchError(t *testing.T) {
	s := newSite(t, indexPage)
	stores := &memStores{fs: afero.NewMemMapFs()}

	_, err := newScanner(stores, 2).Run(context.Background(), s.server.URL+"/nowhere")
	require.Error(t, err)

	var pfe *PageFetchError
	require.True(t, errors.As(err, &pfe))
	assert.Equal(t, s.server.URL+"/nowhere", pfe.URL)
	assert.True(t, errors.Is(err, pdfhttp.ErrNotFound))
	assert.Empty(t, stores.opened)
}

func TestRunInvalidTarget(t *testing.T) {
	s := newSite(t, indexPage)
	stores := &memStores{fs: afero.NewMemMapFs()}
	scanner := newScanner(stores, 2)

	for _, raw := range []string{"", "example.com/papers", "ftp://example.com/x", "http://", "mailto:a@example.com"} {
		_, err := scanner.Run(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidTarget, raw)
	}

	assert.Equal(t, int32(0), s.hits.Load())
	assert.Empty(t, stores.opened)
}

func TestRunStorageError(t *testing.T) {
	s := newSite(t, indexPage)

	scanner := New(testTransport(), Options{
		Logger: quietLogger(),
		OpenStore: func(context.Context, string) (store.Store, error) {
			return store.NewLocalWithFS(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/work/out"), nil
		},
	})

	_, err := scanner.Run(context.Background(), s.server.URL)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestRunCollisions(t *testing.T) {
	page := `<a href="/a/missing.pdf">one</a><a href="/b/missing.pdf">two</a>`
	s := newSite(t, page)

	var logs bytes.Buffer
	stores := &memStores{fs: afero.NewMemMapFs()}
	scanner := New(testTransport(), Options{
		Disambiguate: true,
		OpenStore:    stores.open,
		Logger:       slog.New(slog.NewTextHandler(&logs, nil)),
	})

	res, err := scanner.Run(context.Background(), s.server.URL)
	require.NoError(t, err)

	require.Len(t, res.Collisions, 1)
	assert.Equal(t, "missing.pdf", res.Collisions[0].Filename)
	assert.NotEqual(t, res.Assignments[0].Filename, res.Assignments[1].Filename)
	assert.Contains(t, logs.String(), "Links share a file name")
}

func TestRunProgress(t *testing.T) {
	s := newSite(t, indexPage)

	var out bytes.Buffer
	stores := &memStores{fs: afero.NewMemMapFs()}
	scanner := New(testTransport(), Options{
		Progress:       true,
		ProgressOutput: &out,
		OpenStore:      stores.open,
		Logger:         quietLogger(),
	})

	_, err := scanner.Run(context.Background(), s.server.URL)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "[pdfslurp] Downloading 4 files from "+s.server.URL)
	assert.Contains(t, out.String(), "4/4 files | 2 downloaded | 1 skipped | 1 failed")
}

func TestPlanTouchesNoStorage(t *testing.T) {
	s := newSite(t, indexPage)
	stores := &memStores{fs: afero.NewMemMapFs()}

	res, err := newScanner(stores, 2).Plan(context.Background(), s.server.URL)
	require.NoError(t, err)

	assert.Len(t, res.Assignments, 4)
	assert.Nil(t, res.Report)
	assert.Empty(t, stores.opened)
	assert.Equal(t, int32(1), s.hits.Load())
}

func TestParseTarget(t *testing.T) {
	u, err := ParseTarget("  https://www.example.com/papers  ")
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", u.Host)

	_, err = ParseTarget("example.com")
	assert.True(t, strings.Contains(err.Error(), "http://"))
}
