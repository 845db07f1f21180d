package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEverything(t *testing.T) {
	m := New()

	m.ProblemsIngestedTotal.WithLabelValues("pubmed", "created").Add(3)
	m.ProblemsIngestedTotal.WithLabelValues("pubmed", "duplicate").Inc()
	m.GapsOpen.WithLabelValues("critical").Set(7)
	m.EmbeddingFallbacksTotal.Inc()
	m.AnalysisRunDuration.Observe(42)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ProblemsIngestedTotal.WithLabelValues("pubmed", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProblemsIngestedTotal.WithLabelValues("pubmed", "duplicate")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.GapsOpen.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingFallbacksTotal))
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.EmbeddingFallbacksTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.EmbeddingFallbacksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EmbeddingFallbacksTotal))
}

func TestObserveHTTPRequest(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest("GET", "/api/v1/gaps", "200", 30*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/gaps", "200", 70*time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/gaps", "200")))
}

func TestHandlerScrape(t *testing.T) {
	m := New()
	m.SourceFetchTotal.WithLabelValues("biorxiv", "ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "longmap_source_fetch_total"), "scrape output missing counter")
	assert.True(t, strings.Contains(body, "go_goroutines"), "runtime collector not registered")
}
