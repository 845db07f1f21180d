package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	clinicalTrialsSourceName = "clinical_trials"
	clinicalTrialsBaseURL    = "https://clinicaltrials.gov/api/v2/studies"
	clinicalTrialsMaxPage    = 1000
)

// ClinicalTrials polls the ClinicalTrials.gov v2 study API by condition.
type ClinicalTrials struct {
	client  *http.Client
	logger  logging.Logger
	baseURL string
	terms   []string
}

func NewClinicalTrials(cfg config.SourceConfig, logger logging.Logger) *ClinicalTrials {
	return &ClinicalTrials{
		client:  newHTTPClient(),
		logger:  logger.Named("clinical_trials"),
		baseURL: clinicalTrialsBaseURL,
		terms:   cfg.Terms,
	}
}

func (c *ClinicalTrials) Name() string { return clinicalTrialsSourceName }

type ctStudiesResponse struct {
	Studies []json.RawMessage `json:"studies"`
}

type ctStudy struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		DescriptionModule struct {
			BriefSummary        string `json:"briefSummary"`
			DetailedDescription string `json:"detailedDescription"`
		} `json:"descriptionModule"`
		StatusModule struct {
			StudyFirstSubmitDate string `json:"studyFirstSubmitDate"`
		} `json:"statusModule"`
	} `json:"protocolSection"`
}

func (c *ClinicalTrials) FetchRecent(ctx context.Context, since time.Time, maxResults int) ([]Document, error) {
	pageSize := maxResults
	if pageSize > clinicalTrialsMaxPage {
		pageSize = clinicalTrialsMaxPage
	}

	params := url.Values{
		"query.cond": {termQuery(c.terms)},
		"pageSize":   {strconv.Itoa(pageSize)},
		"format":     {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "build clinicaltrials request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "clinicaltrials request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CodeSourceFetchFailed, "clinicaltrials returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetchFailed, "read clinicaltrials response")
	}

	var res ctStudiesResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceParseFailed, "decode clinicaltrials response")
	}

	docs := make([]Document, 0, len(res.Studies))
	for _, raw := range res.Studies {
		doc, ok := parseStudy(raw, since)
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}

	c.logger.Info("clinicaltrials fetch finished", logging.Int("documents", len(docs)))
	return docs, nil
}

func parseStudy(raw json.RawMessage, since time.Time) (Document, bool) {
	var study ctStudy
	if err := json.Unmarshal(raw, &study); err != nil {
		return Document{}, false
	}

	ident := study.ProtocolSection.IdentificationModule
	if ident.NCTID == "" || ident.BriefTitle == "" {
		return Document{}, false
	}

	desc := study.ProtocolSection.DescriptionModule
	abstract := desc.BriefSummary
	if desc.DetailedDescription != "" {
		abstract += "\n\n" + desc.DetailedDescription
	}

	doc := Document{
		Source:   clinicalTrialsSourceName,
		SourceID: ident.NCTID,
		Title:    ident.BriefTitle,
		Abstract: abstract,
		URL:      "https://clinicaltrials.gov/study/" + ident.NCTID,
		Raw:      raw,
	}

	if submitted, err := time.Parse("2006-01-02", study.ProtocolSection.StatusModule.StudyFirstSubmitDate); err == nil {
		doc.Published = submitted
		if !since.IsZero() && submitted.Before(since) {
			return Document{}, false
		}
	}
	return doc, true
}
