package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/analysis/classify"
	"github.com/openlongevity/longmap/internal/analysis/extract"
	"github.com/openlongevity/longmap/internal/analysis/funding"
	"github.com/openlongevity/longmap/internal/analysis/gapscore"
	"github.com/openlongevity/longmap/internal/analysis/match"
	"github.com/openlongevity/longmap/internal/application/analysis"
	"github.com/openlongevity/longmap/internal/application/fetchstatus"
	"github.com/openlongevity/longmap/internal/application/ingest"
	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/types/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors the response wrapper with a raw Data payload so each test
// can decode it into the type it expects.
type envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Error      *common.ErrorDetail `json:"error"`
	Pagination *common.Pagination  `json:"pagination"`
}

type fixture struct {
	problems            *fakeProblems
	capabilities        *fakeCapabilities
	resources           *fakeResources
	problemCapabilities *fakeProblemCapabilities
	capabilityResources *fakeCapabilityResources
	gaps                *fakeGaps

	similar *fakeSimilar
	tracker *fetchstatus.Tracker
	source  *stubSource

	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		problems:            newFakeProblems(),
		capabilities:        newFakeCapabilities(),
		resources:           newFakeResources(),
		problemCapabilities: newFakeProblemCapabilities(),
		capabilityResources: newFakeCapabilityResources(),
		gaps:                newFakeGaps(),
	}
	logger := logging.NewNop()

	matcher := match.New(match.Config{SimilarityThreshold: 0.05}, match.Deps{Logger: logger})
	ingestSvc := ingest.NewService(ingest.Deps{
		Problems:            f.problems,
		Capabilities:        f.capabilities,
		Resources:           f.resources,
		ProblemCapabilities: f.problemCapabilities,
		CapabilityResources: f.capabilityResources,
		Classifier:          classify.New(),
		Extractor:           extract.New(),
		Matcher:             matcher,
		Logger:              logger,
	})
	analysisSvc := analysis.NewService(analysis.Deps{
		Problems:            f.problems,
		Capabilities:        f.capabilities,
		Resources:           f.resources,
		ProblemCapabilities: f.problemCapabilities,
		CapabilityResources: f.capabilityResources,
		Gaps:                f.gaps,
		Scorer:              gapscore.New(gapscore.Config{}),
		Funding:             funding.New(),
		Matcher:             matcher,
		Logger:              logger,
	})

	r := gin.New()
	v1 := r.Group("/api/v1")

	ph := NewProblemHandler(f.problems, f.capabilities, f.problemCapabilities, ingestSvc, logger)
	v1.GET("/problems", ph.List)
	v1.POST("/problems", ph.Create)
	v1.GET("/problems/:id", ph.Get)
	v1.GET("/problems/:id/capabilities", ph.Capabilities)

	ch := NewCapabilityHandler(f.capabilities, f.resources, f.capabilityResources, logger)
	v1.GET("/capabilities", ch.List)
	v1.GET("/capabilities/:id", ch.Get)
	v1.GET("/capabilities/:id/resources", ch.Resources)

	f.similar = &fakeSimilar{}
	rh := NewResourceHandler(f.resources, f.capabilityResources, f.similar, logger)
	v1.GET("/resources", rh.List)
	v1.POST("/resources", rh.Create)
	v1.GET("/resources/:id", rh.Get)
	v1.GET("/resources/:id/similar", rh.Similar)
	v1.DELETE("/resources/:id", rh.Deactivate)

	gh := NewGapHandler(f.gaps, analysisSvc, logger)
	v1.GET("/gaps", gh.List)
	v1.GET("/gaps/funding-potential", gh.FundingPotential)
	v1.GET("/gaps/:id", gh.Get)

	f.tracker = fetchstatus.New()
	f.source = &stubSource{name: "pubmed"}
	runner := ingest.NewRunner(config.WorkerConfig{DaysBack: 7, Concurrency: 2}, ingest.RunnerDeps{
		Service: ingestSvc,
		Polls:   []ingest.Poll{{Source: f.source, MaxResults: 10}},
		Tracker: f.tracker,
		Logger:  logger,
	})

	ah := NewAnalysisHandler(analysisSvc, runner, f.tracker, logger)
	v1.GET("/matrix/problem-capability", ah.Matrix)
	v1.GET("/keystone-capabilities", ah.Keystones)
	v1.GET("/duplication-clusters", ah.DuplicationClusters)
	v1.GET("/coordination-opportunities", ah.CoordinationOpportunities)
	v1.GET("/stats", ah.Stats)
	v1.POST("/analysis/run", ah.RunAnalysis)
	v1.POST("/fetch/run", ah.RunFetch)
	v1.GET("/fetch/status", ah.FetchStatus)

	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func decodeData(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}
