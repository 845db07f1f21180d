package client

import (
	"context"
	"strconv"
	"time"
)

// AnalysisClient covers the cross-entity reports and the fetch and analysis
// triggers.
type AnalysisClient struct {
	client *Client
}

// MatrixCell is one capability requirement inside a matrix row.
type MatrixCell struct {
	CapabilityID string  `json:"capability_id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Confidence   float64 `json:"confidence"`
	IsRequired   bool    `json:"is_required"`
}

// MatrixRow maps one problem onto the capabilities it requires.
type MatrixRow struct {
	ProblemID    string       `json:"problem_id"`
	Title        string       `json:"title"`
	Category     string       `json:"category"`
	Capabilities []MatrixCell `json:"capabilities"`
}

// Matrix fetches the problem-capability matrix.
func (ac *AnalysisClient) Matrix(ctx context.Context, limit int) ([]MatrixRow, error) {
	path := "/matrix/problem-capability"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var rows []MatrixRow
	if _, err := ac.client.get(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Keystone is a capability ranked by how many problems require it.
type Keystone struct {
	Capability   *Capability `json:"capability"`
	ProblemCount int64       `json:"problem_count"`
}

// Keystones fetches the most widely required capabilities.
func (ac *AnalysisClient) Keystones(ctx context.Context, topN int) ([]*Keystone, error) {
	path := "/keystone-capabilities"
	if topN > 0 {
		path += "?top_n=" + strconv.Itoa(topN)
	}
	var keystones []*Keystone
	if _, err := ac.client.get(ctx, path, &keystones); err != nil {
		return nil, err
	}
	return keystones, nil
}

// Cluster is a group of near-duplicate resources.
type Cluster struct {
	Size      int         `json:"size"`
	Resources []*Resource `json:"resources"`
}

// DuplicationClusters fetches groups of minGroups or more near-duplicate
// resources.
func (ac *AnalysisClient) DuplicationClusters(ctx context.Context, minGroups int) ([]Cluster, error) {
	path := "/duplication-clusters"
	if minGroups > 0 {
		path += "?min_groups=" + strconv.Itoa(minGroups)
	}
	var clusters []Cluster
	if _, err := ac.client.get(ctx, path, &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// Stats is the platform-wide summary.
type Stats struct {
	NumProblems               int64            `json:"num_problems"`
	NumCapabilities           int64            `json:"num_capabilities"`
	NumResources              int64            `json:"num_resources"`
	NumGaps                   int64            `json:"num_gaps"`
	TotalBlockedResearchValue float64          `json:"total_blocked_research_value"`
	ProblemsByCategory        map[string]int64 `json:"problems_by_category"`
	GapsByPriority            map[string]int64 `json:"gaps_by_priority"`
}

// Stats fetches platform counts and totals.
func (ac *AnalysisClient) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if _, err := ac.client.get(ctx, "/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RunSummary reports one gap analysis pass.
type RunSummary struct {
	CapabilitiesScored int `json:"capabilities_scored"`
	GapsOpen           int `json:"gaps_open"`
	GapsClosed         int `json:"gaps_closed"`
}

// RunAnalysis triggers a synchronous gap analysis pass.
func (ac *AnalysisClient) RunAnalysis(ctx context.Context) (*RunSummary, error) {
	var summary RunSummary
	if err := ac.client.post(ctx, "/analysis/run", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// RunFetch starts a background source fetch. Poll FetchStatus for progress.
func (ac *AnalysisClient) RunFetch(ctx context.Context) error {
	return ac.client.post(ctx, "/fetch/run", nil, nil)
}

// SourceResult reports one source's share of a fetch run.
type SourceResult struct {
	Source    string    `json:"source"`
	Fetched   int       `json:"fetched"`
	Created   int       `json:"created"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FetchStatus is the fetch pipeline's current state.
type FetchStatus struct {
	Running    bool           `json:"running"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	Sources    []SourceResult `json:"sources"`
	TotalRuns  int64          `json:"total_runs"`
}

// FetchStatus fetches the state of the last or current fetch run.
func (ac *AnalysisClient) FetchStatus(ctx context.Context) (*FetchStatus, error) {
	var status FetchStatus
	if _, err := ac.client.get(ctx, "/fetch/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}
