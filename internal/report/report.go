// Package report aggregates download outcomes into the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ligustah/pdfslurp/internal/downloader"
	"github.com/ligustah/pdfslurp/internal/progress"
)

// Report partitions the outcomes of one run by kind. Successful items are
// only counted; every other outcome is kept for itemized output.
type Report struct {
	Total     int
	Succeeded int
	Bytes     int64 // published documents only
	Elapsed   time.Duration

	SkippedExists []downloader.Outcome
	SkippedNotPDF []downloader.Outcome
	Failed        []downloader.Outcome
}

// Summarize builds a Report from a complete set of outcomes. Itemized lists
// are sorted by file name so the output does not depend on completion order.
func Summarize(outcomes []downloader.Outcome) *Report {
	r := &Report{}
	for _, o := range outcomes {
		r.add(o)
	}
	r.sort()
	return r
}

// Collect drains outcomes as they complete and summarizes them. It returns
// once the channel is closed.
func Collect(outcomes <-chan downloader.Outcome) *Report {
	start := time.Now()
	r := &Report{}
	for o := range outcomes {
		r.add(o)
	}
	r.sort()
	r.Elapsed = time.Since(start)
	return r
}

func (r *Report) add(o downloader.Outcome) {
	r.Total++

	switch o.Kind {
	case downloader.Succeeded:
		r.Succeeded++
		r.Bytes += o.Bytes
	case downloader.SkippedExists:
		r.SkippedExists = append(r.SkippedExists, o)
	case downloader.SkippedNotPDF:
		r.SkippedNotPDF = append(r.SkippedNotPDF, o)
	default:
		r.Failed = append(r.Failed, o)
	}
}

func (r *Report) sort() {
	for _, list := range [][]downloader.Outcome{r.SkippedExists, r.SkippedNotPDF, r.Failed} {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Filename != list[j].Filename {
				return list[i].Filename < list[j].Filename
			}
			return list[i].Link < list[j].Link
		})
	}
}

// AllSucceeded reports whether every outcome was a successful download.
// An empty report is not considered successful.
func (r *Report) AllSucceeded() bool {
	return r.Total > 0 && r.Succeeded == r.Total
}

// HasFailures reports whether any item failed.
func (r *Report) HasFailures() bool {
	return len(r.Failed) > 0
}

// Print writes the human-readable report to w.
func (r *Report) Print(w io.Writer) error {
	p := &printer{w: w}

	p.printf("\n--- Download Report ---\n")
	p.printf("Total:                %d\n", r.Total)
	p.printf("Downloaded:           %d (%s)\n", r.Succeeded, progress.FormatBytes(r.Bytes))
	p.printf("Skipped (exists):     %d\n", len(r.SkippedExists))
	p.printf("Skipped (not a PDF):  %d\n", len(r.SkippedNotPDF))
	p.printf("Failed:               %d\n", len(r.Failed))
	if r.Elapsed > 0 {
		p.printf("Elapsed:              %s\n", progress.FormatDuration(r.Elapsed))
	}

	if r.AllSucceeded() {
		p.printf("\nAll %d files downloaded successfully.\n", r.Total)
		return p.err
	}

	if len(r.SkippedExists) > 0 {
		p.printf("\nSkipped, already present:\n")
		for _, o := range r.SkippedExists {
			p.printf("  - %s\n", o.Filename)
		}
	}
	if len(r.SkippedNotPDF) > 0 {
		p.printf("\nSkipped, not a PDF:\n")
		for _, o := range r.SkippedNotPDF {
			p.printf("  - %s (%s) from %s\n", o.Filename, contentType(o), o.Link)
		}
	}
	if len(r.Failed) > 0 {
		p.printf("\nFailed:\n")
		for _, o := range r.Failed {
			p.printf("  - %s from %s: %v\n", o.Filename, o.Link, o.Err)
		}
	}

	return p.err
}

func contentType(o downloader.Outcome) string {
	if o.ContentType == "" {
		return "no content type"
	}
	return o.ContentType
}

// printer keeps the first write error so Print can report it once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
