package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
)

const studiesFixture = `{
  "studies": [
    {
      "protocolSection": {
        "identificationModule": {
          "nctId": "NCT05012345",
          "briefTitle": "Senolytic Combination in Older Adults"
        },
        "descriptionModule": {
          "briefSummary": "Dasatinib plus quercetin in adults over 65.",
          "detailedDescription": "Randomized placebo-controlled trial."
        },
        "statusModule": {
          "studyFirstSubmitDate": "2026-05-20"
        }
      }
    },
    {
      "protocolSection": {
        "identificationModule": {
          "nctId": "NCT04000001",
          "briefTitle": "Old Rapamycin Trial"
        },
        "descriptionModule": {"briefSummary": "Legacy study."},
        "statusModule": {"studyFirstSubmitDate": "2019-01-01"}
      }
    },
    {
      "protocolSection": {
        "identificationModule": {"briefTitle": "Missing registry id"}
      }
    }
  ]
}`

func TestClinicalTrialsFetchRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aging OR longevity", r.URL.Query().Get("query.cond"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		w.Write([]byte(studiesFixture))
	}))
	defer srv.Close()

	c := NewClinicalTrials(config.SourceConfig{Terms: []string{"aging", "longevity"}}, logging.NewNop())
	c.baseURL = srv.URL

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs, err := c.FetchRecent(context.Background(), since, 50)
	require.NoError(t, err)

	// Pre-cutoff and id-less studies are dropped.
	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, "clinical_trials", doc.Source)
	assert.Equal(t, "NCT05012345", doc.SourceID)
	assert.Equal(t, "Senolytic Combination in Older Adults", doc.Title)
	assert.Contains(t, doc.Abstract, "Dasatinib plus quercetin")
	assert.Contains(t, doc.Abstract, "Randomized placebo-controlled")
	assert.Equal(t, "https://clinicaltrials.gov/study/NCT05012345", doc.URL)
	assert.Equal(t, time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC), doc.Published)
	assert.Contains(t, string(doc.Raw), "NCT05012345")
}

func TestClinicalTrialsPageSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000", r.URL.Query().Get("pageSize"))
		w.Write([]byte(`{"studies":[]}`))
	}))
	defer srv.Close()

	c := NewClinicalTrials(config.SourceConfig{}, logging.NewNop())
	c.baseURL = srv.URL
	_, err := c.FetchRecent(context.Background(), time.Time{}, 5000)
	require.NoError(t, err)
}

func TestClinicalTrialsBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	c := NewClinicalTrials(config.SourceConfig{}, logging.NewNop())
	c.baseURL = srv.URL
	_, err := c.FetchRecent(context.Background(), time.Time{}, 10)
	assert.Error(t, err)
}
