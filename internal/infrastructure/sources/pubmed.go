package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
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
	pubmedSourceName = "pubmed"
	eutilsBaseURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	pubmedBatchSize  = 100

	// NCBI allows 3 req/s without an API key and 10 req/s with one.
	pubmedDelayNoKey   = 340 * time.Millisecond
	pubmedDelayWithKey = 100 * time.Millisecond
)

// PubMed polls the NCBI E-utilities API: esearch for PMIDs, then efetch in
// batches for article detail.
type PubMed struct {
	client  *http.Client
	logger  logging.Logger
	baseURL string
	terms   []string
	apiKey  string
}

func NewPubMed(cfg config.SourceConfig, logger logging.Logger) *PubMed {
	return &PubMed{
		client:  newHTTPClient(),
		logger:  logger.Named("pubmed"),
		baseURL: eutilsBaseURL,
		terms:   cfg.Terms,
		apiKey:  cfg.APIKey,
	}
}

func (p *PubMed) Name() string { return pubmedSourceName }

func (p *PubMed) FetchRecent(ctx context.Context, since time.Time, maxResults int) ([]Document, error) {
	pmids, err := p.search(ctx, since, maxResults)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	delay := pubmedDelayNoKey
	if p.apiKey != "" {
		delay = pubmedDelayWithKey
	}

	var docs []Document
	for start := 0; start < len(pmids); start += pubmedBatchSize {
		end := start + pubmedBatchSize
		if end > len(pmids) {
			end = len(pmids)
		}

		batch, err := p.fetchBatch(ctx, pmids[start:end])
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch...)

		if end < len(pmids) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	p.logger.Info("pubmed fetch finished",
		logging.Int("pmids", len(pmids)),
		logging.Int("documents", len(docs)))
	return docs, nil
}

func (p *PubMed) query(since time.Time) string {
	q := fmt.Sprintf("(%s) AND (research OR study OR intervention OR mechanism)", termQuery(p.terms))
	if !since.IsZero() {
		q += fmt.Sprintf(" AND (%s[PDAT] : %s[PDAT])",
			since.Format("2006/01/02"), time.Now().Format("2006/01/02"))
	}
	return q
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (p *PubMed) search(ctx context.Context, since time.Time, maxResults int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {p.query(since)},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"json"},
		"sort":    {"pub_date"},
	}
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}

	body, err := p.get(ctx, p.baseURL+"/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var res esearchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceParseFailed, "decode esearch response")
	}
	return res.ESearchResult.IDList, nil
}

// efetch XML shapes, limited to the fields the pipeline keeps.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Medline struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Text []string `xml:"AbstractText"`
			} `xml:"Abstract"`
			ELocationIDs []struct {
				Type  string `xml:"EIdType,attr"`
				Value string `xml:",chardata"`
			} `xml:"ELocationID"`
			ArticleDate struct {
				Year  int `xml:"Year"`
				Month int `xml:"Month"`
				Day   int `xml:"Day"`
			} `xml:"ArticleDate"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

func (p *PubMed) fetchBatch(ctx context.Context, pmids []string) ([]Document, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}

	body, err := p.get(ctx, p.baseURL+"/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceParseFailed, "decode efetch response")
	}

	docs := make([]Document, 0, len(set.Articles))
	for _, a := range set.Articles {
		doc, ok := parsePubmedArticle(a)
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parsePubmedArticle(a pubmedArticle) (Document, bool) {
	pmid := strings.TrimSpace(a.Medline.PMID)
	title := strings.TrimSpace(a.Medline.Article.Title)
	if pmid == "" || title == "" {
		return Document{}, false
	}

	doc := Document{
		Source:   pubmedSourceName,
		SourceID: pmid,
		Title:    title,
		Abstract: strings.TrimSpace(strings.Join(a.Medline.Article.Abstract.Text, " ")),
		URL:      "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
	}

	for _, eloc := range a.Medline.Article.ELocationIDs {
		if eloc.Type == "doi" {
			doc.DOI = strings.TrimSpace(eloc.Value)
		}
	}

	d := a.Medline.Article.ArticleDate
	if d.Year > 0 {
		month := d.Month
		if month == 0 {
			month = 1
		}
		day := d.Day
		if day == 0 {
			day = 1
		}
		doc.Published = time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}

	// The archive gets the normalized record; efetch XML is not split per
	// article on the wire.
	raw, err := json.Marshal(map[string]string{
		"pmid":     doc.SourceID,
		"title":    doc.Title,
		"abstract": doc.Abstract,
		"doi":      doc.DOI,
	})
	if err == nil {
		doc.Raw = raw
	}
	return doc, true
}

func (p *PubMed) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "build pubmed request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "pubmed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CodeSourceFetchFailed, "pubmed returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "read pubmed response")
	}
	return body, nil
}
