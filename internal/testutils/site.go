// Package testutils provides shared test infrastructure: a small website
// serving documents, and (with the integration tag) a MinIO container.
package testutils

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Document is a file served by a test site and linked from its index page.
type Document struct {
	// Path is the URL path, e.g. "/files/report.pdf".
	Path string

	// Text is the anchor text on the index page.
	Text string

	// ContentType is sent with the document. Default: application/pdf.
	ContentType string

	// Status overrides the response status. Default: 200.
	Status int

	Data []byte
}

// Site is a running test website.
type Site struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

// Hits returns how many requests were made for path.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served, including the index.
func (s *Site) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// GenerateTestData generates deterministic document content of the given
// size, starting with a PDF header.
func GenerateTestData(t *testing.T, size int64) []byte {
	t.Helper()

	header := []byte("%PDF-1.4\n")
	data := make([]byte, size)
	n := copy(data, header)
	for i := n; i < len(data); i++ {
		data[i] = byte(i % 256)
	}
	return data
}

// IndexPage renders an HTML page linking every document.
func IndexPage(docs []Document) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>Documents</title></head><body>\n<ul>\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(d.Path), html.EscapeString(d.Text))
	}
	b.WriteString("</ul>\n<a href=\"/about.html\">About us</a>\n</body></html>\n")
	return b.String()
}

// StartTestSite starts an HTTP server whose index page ("/") links docs.
func StartTestSite(t *testing.T, docs []Document) *Site {
	t.Helper()

	byPath := make(map[string]Document)
	for _, d := range docs {
		byPath[strings.SplitN(d.Path, "?", 2)[0]] = d
	}
	index := IndexPage(docs)

	site := &Site{hits: make(map[string]int)}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		site.mu.Unlock()

		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, index)
			return
		}

		doc, ok := byPath[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		contentType := doc.ContentType
		if contentType == "" {
			contentType = "application/pdf"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
		if doc.Status != 0 {
			w.WriteHeader(doc.Status)
		}
		w.Write(doc.Data)
	}))
	t.Cleanup(site.Close)

	return site
}

// CompareReaderToData compares reader output with expected data in chunks.
func CompareReaderToData(t *testing.T, reader io.Reader, expected []byte) {
	t.Helper()

	chunkSize := 64 * 1024
	buf := make([]byte, chunkSize)
	offset := 0

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if offset+n > len(expected) {
				t.Fatalf("read more data than expected: offset=%d, n=%d, expected len=%d",
					offset, n, len(expected))
			}
			if !bytes.Equal(buf[:n], expected[offset:offset+n]) {
				t.Fatalf("data mismatch at offset %d", offset)
			}
			offset += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read error at offset %d: %v", offset, err)
		}
	}

	if offset != len(expected) {
		t.Fatalf("incomplete read: got %d bytes, want %d", offset, len(expected))
	}
}
