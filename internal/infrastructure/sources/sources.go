// Package sources fetches aging-research literature from external providers
// and normalizes it into documents the ingest pipeline can process.
package sources

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const fetchTimeout = 30 * time.Second

// Document is one normalized record from a literature source. Raw carries
// the provider's payload for the archive.
type Document struct {
	Source    string
	SourceID  string
	Title     string
	Abstract  string
	DOI       string
	URL       string
	Published time.Time
	Raw       []byte
}

// Text returns the title and abstract joined the way the extractor scans it.
func (d Document) Text() string {
	if d.Abstract == "" {
		return d.Title
	}
	return d.Title + "\n\n" + d.Abstract
}

// Source is one literature provider.
type Source interface {
	// Name is the stable source identifier stored on problems.
	Name() string

	// FetchRecent returns documents published since the cutoff, newest
	// first where the provider supports ordering, up to maxResults.
	FetchRecent(ctx context.Context, since time.Time, maxResults int) ([]Document, error)
}

var defaultTerms = []string{"aging", "ageing", "longevity", "senescence", "gerontology"}

// termQuery renders terms as an OR group; empty input falls back to the
// default aging vocabulary.
func termQuery(terms []string) string {
	if len(terms) == 0 {
		terms = defaultTerms
	}
	return strings.Join(terms, " OR ")
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: fetchTimeout}
}
