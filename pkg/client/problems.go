package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ProblemsClient covers the problem and capability endpoints.
type ProblemsClient struct {
	client *Client
}

// Problem is a documented research bottleneck.
type Problem struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Source      string    `json:"source,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
}

// Capability is a tool, method or model the field needs.
type Capability struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Type            string  `json:"type"`
	EstimatedCost   float64 `json:"estimated_cost,omitempty"`
	EstimatedTime   int     `json:"estimated_time,omitempty"`
	ComplexityScore float64 `json:"complexity_score,omitempty"`
}

// ProblemCapability is one capability a problem requires.
type ProblemCapability struct {
	Capability *Capability `json:"capability"`
	Confidence float64     `json:"confidence"`
	IsRequired bool        `json:"is_required"`
}

// ListProblemsOptions narrow a problem listing.
type ListProblemsOptions struct {
	Category string
	Source   string
	Limit    int
	Offset   int
}

// List fetches problems, newest first.
func (pc *ProblemsClient) List(ctx context.Context, opts ListProblemsOptions) ([]*Problem, *Pagination, error) {
	q := url.Values{}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Source != "" {
		q.Set("source", opts.Source)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/problems"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var problems []*Problem
	page, err := pc.client.get(ctx, path, &problems)
	if err != nil {
		return nil, nil, err
	}
	return problems, page, nil
}

// Get fetches one problem by ID.
func (pc *ProblemsClient) Get(ctx context.Context, id string) (*Problem, error) {
	var p Problem
	if _, err := pc.client.get(ctx, "/problems/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Capabilities fetches the capabilities a problem requires.
func (pc *ProblemsClient) Capabilities(ctx context.Context, id string) ([]ProblemCapability, error) {
	var out []ProblemCapability
	if _, err := pc.client.get(ctx, "/problems/"+url.PathEscape(id)+"/capabilities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProblemRequest submits a hand-curated problem.
type CreateProblemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Source      string `json:"source,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

// CreateProblemResult reports what the submission produced.
type CreateProblemResult struct {
	Status       string `json:"status"`
	ProblemID    string `json:"problem_id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	Capabilities int    `json:"capabilities"`
	Matches      int    `json:"matches"`
}

// Create submits a problem; the server runs it through the full extraction
// and matching pipeline.
func (pc *ProblemsClient) Create(ctx context.Context, req CreateProblemRequest) (*CreateProblemResult, error) {
	var result CreateProblemResult
	if err := pc.client.post(ctx, "/problems", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListCapabilitiesOptions narrow a capability listing.
type ListCapabilitiesOptions struct {
	Type   string
	Limit  int
	Offset int
}

// ListCapabilities fetches the capability catalog.
func (pc *ProblemsClient) ListCapabilities(ctx context.Context, opts ListCapabilitiesOptions) ([]*Capability, *Pagination, error) {
	q := url.Values{}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/capabilities"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var caps []*Capability
	page, err := pc.client.get(ctx, path, &caps)
	if err != nil {
		return nil, nil, err
	}
	return caps, page, nil
}

// MatchedResource pairs a resource with its match score for a capability.
type MatchedResource struct {
	Resource   *Resource `json:"resource"`
	MatchScore float64   `json:"match_score"`
}

// Resource is an existing asset that may satisfy a capability.
type Resource struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Type         string  `json:"type"`
	Organization string  `json:"organization,omitempty"`
	URL          string  `json:"url,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
	IsActive     bool    `json:"is_active"`
}

// CapabilityResources fetches the resources matched to a capability,
// strongest match first.
func (pc *ProblemsClient) CapabilityResources(ctx context.Context, capabilityID string) ([]MatchedResource, error) {
	var out []MatchedResource
	path := fmt.Sprintf("/capabilities/%s/resources", url.PathEscape(capabilityID))
	if _, err := pc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
