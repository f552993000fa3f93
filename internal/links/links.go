// Package links finds candidate document links in an HTML page.
package links

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const (
	pdfSuffix  = ".pdf"
	pdfKeyword = "PDF"
)

// Extract parses the page read from r and returns the sorted, deduplicated
// set of absolute URLs of anchors that look like PDF documents. An anchor
// qualifies when its href ends in ".pdf" (any case) or its visible text
// mentions "PDF". contentType is the page's declared Content-Type and is
// only used to pick a charset; it may be empty.
func Extract(r io.Reader, contentType string, base *url.URL) ([]string, error) {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	root, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return FromDocument(goquery.NewDocumentFromNode(root), base), nil
}

// FromDocument applies the selection rule to an already parsed document.
func FromDocument(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	var result []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !Matches(href, s.Text()) {
			return
		}

		ref, err := base.Parse(href)
		if err != nil {
			return
		}

		link := ref.String()
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		result = append(result, link)
	})

	sort.Strings(result)
	return result
}

// Matches reports whether an anchor with the given href and visible text
// is a document candidate.
func Matches(href, text string) bool {
	if strings.HasSuffix(strings.ToLower(href), pdfSuffix) {
		return true
	}
	return strings.Contains(strings.ToUpper(strings.TrimSpace(text)), pdfKeyword)
}
