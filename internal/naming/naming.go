// Package naming maps document links to local file names and a run's target
// to its destination folder.
package naming

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"
)

const (
	pdfExt          = ".pdf"
	fallbackName    = "document.pdf"
	folderSuffix    = "_downloads"
	hashSuffixChars = 8
)

// Filename derives a safe file name from link. It is a pure function of
// the link string and always returns a non-empty name ending in ".pdf".
func Filename(link string) string {
	fragment := link
	if i := strings.LastIndex(fragment, "/"); i >= 0 {
		fragment = fragment[i+1:]
	}
	if i := strings.Index(fragment, "?"); i >= 0 {
		fragment = fragment[:i]
	}

	if !strings.HasSuffix(strings.ToLower(fragment), pdfExt) {
		fragment += pdfExt
	}

	name := strings.TrimSpace(strings.Map(keepRune, fragment))
	if name == "" {
		return fallbackName
	}
	return name
}

func keepRune(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return r
	case r == ' ', r == '.', r == '_', r == '-':
		return r
	}
	return -1
}

// Folder returns the destination folder name for target: its host with a
// leading "www." removed, followed by "_downloads".
func Folder(target *url.URL) string {
	return strings.TrimPrefix(target.Host, "www.") + folderSuffix
}

// Assignment pairs a link with the file name it will be written to.
type Assignment struct {
	Link     string
	Filename string
}

// Collision lists links that derive the same file name.
type Collision struct {
	Filename string
	Links    []string
}

// Plan assigns a file name to every link, preserving input order. Links
// whose names collide are reported; with disambiguate set each colliding
// link instead gets a short hash of its URL appended to the name stem.
func Plan(links []string, disambiguate bool) ([]Assignment, []Collision) {
	byName := make(map[string][]string)
	var order []string

	assignments := make([]Assignment, len(links))
	for i, link := range links {
		name := Filename(link)
		assignments[i] = Assignment{Link: link, Filename: name}
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = append(byName[name], link)
	}

	var collisions []Collision
	for _, name := range order {
		if len(byName[name]) > 1 {
			collisions = append(collisions, Collision{Filename: name, Links: byName[name]})
		}
	}

	if !disambiguate || len(collisions) == 0 {
		return assignments, collisions
	}

	for i, a := range assignments {
		if len(byName[a.Filename]) > 1 {
			assignments[i].Filename = withHash(a.Filename, a.Link)
		}
	}
	return assignments, collisions
}

// withHash inserts "-<hash>" before the extension of name.
func withHash(name, link string) string {
	sum := sha1.Sum([]byte(link))
	suffix := "-" + hex.EncodeToString(sum[:])[:hashSuffixChars]

	stem := name[:len(name)-len(pdfExt)]
	return stem + suffix + name[len(name)-len(pdfExt):]
}
