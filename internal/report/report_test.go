package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligustah/pdfslurp/internal/downloader"
)

func outcome(name string, kind downloader.Kind) downloader.Outcome {
	return downloader.Outcome{
		Job:  downloader.Job{Link: "https://example.com/" + name, Filename: name},
		Kind: kind,
	}
}

func TestSummarize(t *testing.T) {
	failed := outcome("b.pdf", downloader.Failed)
	failed.Err = errors.New("http: unexpected status 404 Not Found")

	truncated := outcome("c.pdf", downloader.Failed)
	truncated.Err = errors.New("read: unexpected EOF")
	truncated.Bytes = 4096

	notPDF := outcome("page.pdf", downloader.SkippedNotPDF)
	notPDF.ContentType = "text/html"

	ok := outcome("ok.pdf", downloader.Succeeded)
	ok.Bytes = 2048

	r := Summarize([]downloader.Outcome{
		outcome("z.pdf", downloader.SkippedExists),
		failed,
		truncated,
		ok,
		notPDF,
		outcome("a.pdf", downloader.SkippedExists),
	})

	assert.Equal(t, 6, r.Total)
	assert.Equal(t, 1, r.Succeeded)
	assert.Equal(t, int64(2048), r.Bytes, "discarded bytes of failed transfers are not counted")
	require.Len(t, r.SkippedExists, 2)
	assert.Equal(t, "a.pdf", r.SkippedExists[0].Filename)
	assert.Equal(t, "z.pdf", r.SkippedExists[1].Filename)
	assert.Len(t, r.SkippedNotPDF, 1)
	assert.Len(t, r.Failed, 2)
	assert.False(t, r.AllSucceeded())
	assert.True(t, r.HasFailures())

	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf))
	out := buf.String()

	assert.Contains(t, out, "--- Download Report ---")
	assert.Contains(t, out, "Downloaded:           1 (2.0 KiB)")
	assert.Contains(t, out, "page.pdf (text/html)")
	assert.Contains(t, out, "b.pdf from https://example.com/b.pdf: http: unexpected status 404 Not Found")
	assert.Less(t, strings.Index(out, "  - a.pdf"), strings.Index(out, "  - z.pdf"))
	assert.NotContains(t, out, "ok.pdf", "successes are reported only in aggregate")
}

func TestAllSucceeded(t *testing.T) {
	r := Summarize([]downloader.Outcome{
		outcome("a.pdf", downloader.Succeeded),
		outcome("b.pdf", downloader.Succeeded),
	})
	assert.True(t, r.AllSucceeded())
	assert.False(t, r.HasFailures())

	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf))
	assert.Contains(t, buf.String(), "All 2 files downloaded successfully.")
	assert.NotContains(t, buf.String(), "Skipped, already present")
}

func TestEmptyReport(t *testing.T) {
	r := Summarize(nil)
	assert.Equal(t, 0, r.Total)
	assert.False(t, r.AllSucceeded())
}

func TestCollect(t *testing.T) {
	ch := make(chan downloader.Outcome, 3)
	ch <- outcome("c.pdf", downloader.Failed)
	ch <- outcome("a.pdf", downloader.Succeeded)
	ch <- outcome("b.pdf", downloader.Failed)
	close(ch)

	r := Collect(ch)
	assert.Equal(t, 3, r.Total)
	require.Len(t, r.Failed, 2)
	assert.Equal(t, "b.pdf", r.Failed[0].Filename)
	assert.Equal(t, "c.pdf", r.Failed[1].Filename)
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestPrintWriteError(t *testing.T) {
	r := Summarize([]downloader.Outcome{outcome("a.pdf", downloader.Succeeded)})
	assert.EqualError(t, r.Print(errWriter{}), "closed pipe")
}
