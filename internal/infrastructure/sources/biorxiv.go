package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	biorxivBaseURL    = "https://api.biorxiv.org/details"
	biorxivPageSize   = 100
	preprintSourceFmt = "preprint_"
)

// preprintServers are queried in order; each yields its own source name
// (preprint_biorxiv, preprint_medrxiv).
var preprintServers = []string{"biorxiv", "medrxiv"}

// BioRxiv polls the bioRxiv details API across the bioRxiv and medRxiv
// servers and keeps the preprints whose text mentions the configured terms.
type BioRxiv struct {
	client  *http.Client
	logger  logging.Logger
	baseURL string
	terms   []string
}

func NewBioRxiv(cfg config.SourceConfig, logger logging.Logger) *BioRxiv {
	return &BioRxiv{
		client:  newHTTPClient(),
		logger:  logger.Named("biorxiv"),
		baseURL: biorxivBaseURL,
		terms:   cfg.Terms,
	}
}

func (b *BioRxiv) Name() string { return "biorxiv" }

type biorxivResponse struct {
	Collection []json.RawMessage `json:"collection"`
}

type biorxivPaper struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Date     string `json:"date"`
	Server   string `json:"server"`
}

func (b *BioRxiv) FetchRecent(ctx context.Context, since time.Time, maxResults int) ([]Document, error) {
	var docs []Document
	for _, server := range preprintServers {
		serverDocs, err := b.fetchServer(ctx, server, since, maxResults)
		if err != nil {
			// One server being down should not lose the other's batch.
			b.logger.Warn("preprint server fetch failed",
				logging.String("server", server),
				logging.Err(err))
			continue
		}
		docs = append(docs, serverDocs...)
	}

	b.logger.Info("preprint fetch finished", logging.Int("documents", len(docs)))
	return docs, nil
}

func (b *BioRxiv) fetchServer(ctx context.Context, server string, since time.Time, maxResults int) ([]Document, error) {
	num := maxResults
	if num > biorxivPageSize {
		num = biorxivPageSize
	}

	params := url.Values{
		"start": {"0"},
		"num":   {strconv.Itoa(num)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+"/"+server+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "build biorxiv request")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "biorxiv request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CodeSourceFetchFailed, "biorxiv returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "read biorxiv response")
	}

	var res biorxivResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceParseFailed, "decode biorxiv response")
	}

	terms := b.terms
	if len(terms) == 0 {
		terms = defaultTerms
	}

	docs := make([]Document, 0, len(res.Collection))
	for _, raw := range res.Collection {
		doc, ok := parsePreprint(raw, server, since, terms)
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// parsePreprint keeps a paper when any term appears in its title or
// abstract; the details API has no server-side query parameter.
func parsePreprint(raw json.RawMessage, server string, since time.Time, terms []string) (Document, bool) {
	var paper biorxivPaper
	if err := json.Unmarshal(raw, &paper); err != nil {
		return Document{}, false
	}
	if paper.DOI == "" || paper.Title == "" {
		return Document{}, false
	}

	text := strings.ToLower(paper.Title + " " + paper.Abstract)
	matched := false
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			matched = true
			break
		}
	}
	if !matched {
		return Document{}, false
	}

	doc := Document{
		Source:   preprintSourceFmt + server,
		SourceID: paper.DOI,
		Title:    strings.TrimSpace(paper.Title),
		Abstract: strings.TrimSpace(paper.Abstract),
		DOI:      paper.DOI,
		URL:      "https://doi.org/" + paper.DOI,
		Raw:      raw,
	}

	if published, err := time.Parse("2006-01-02", paper.Date); err == nil {
		doc.Published = published
		if !since.IsZero() && published.Before(since) {
			return Document{}, false
		}
	}
	return doc, true
}
