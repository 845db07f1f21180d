package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// GapsClient covers the capability-gap endpoints.
type GapsClient struct {
	client *Client
}

// Gap is a capability no existing resource serves.
type Gap struct {
	ID                   string    `json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	CapabilityID         string    `json:"capability_id"`
	Description          string    `json:"description"`
	EstimatedCost        float64   `json:"estimated_cost,omitempty"`
	EstimatedTime        int       `json:"estimated_time,omitempty"`
	BlockedResearchValue float64   `json:"blocked_research_value"`
	NumBlockedProblems   int       `json:"num_blocked_problems"`
	Priority             string    `json:"priority"`
	ImpactScore          float64   `json:"impact_score"`
}

// FundingPrediction estimates how fundable closing a gap is.
type FundingPrediction struct {
	GapID               string             `json:"gap_id"`
	AttractivenessScore float64            `json:"attractiveness_score"`
	Factors             map[string]float64 `json:"factors"`
	Likelihood          string             `json:"predicted_funding_likelihood"`
}

// RankedGap pairs a gap with its funding prediction.
type RankedGap struct {
	Gap        *Gap               `json:"gap"`
	Prediction *FundingPrediction `json:"prediction"`
}

// ListGapsOptions narrow a gap listing.
type ListGapsOptions struct {
	Priority        string
	MinBlockedValue float64
	Limit           int
	Offset          int
}

// List fetches gaps, highest impact first.
func (gc *GapsClient) List(ctx context.Context, opts ListGapsOptions) ([]*Gap, *Pagination, error) {
	q := url.Values{}
	if opts.Priority != "" {
		q.Set("priority", opts.Priority)
	}
	if opts.MinBlockedValue > 0 {
		q.Set("min_blocked_value", strconv.FormatFloat(opts.MinBlockedValue, 'f', -1, 64))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/gaps"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var gaps []*Gap
	page, err := gc.client.get(ctx, path, &gaps)
	if err != nil {
		return nil, nil, err
	}
	return gaps, page, nil
}

// Get fetches one gap by ID.
func (gc *GapsClient) Get(ctx context.Context, id string) (*Gap, error) {
	var g Gap
	if _, err := gc.client.get(ctx, "/gaps/"+url.PathEscape(id), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// FundingPotential fetches the topN gaps most attractive to funders.
func (gc *GapsClient) FundingPotential(ctx context.Context, topN int) ([]*RankedGap, error) {
	path := "/gaps/funding-potential"
	if topN > 0 {
		path += "?top_n=" + strconv.Itoa(topN)
	}
	var ranked []*RankedGap
	if _, err := gc.client.get(ctx, path, &ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}
