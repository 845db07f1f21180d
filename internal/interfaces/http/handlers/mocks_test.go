package handlers

import (
	"context"
	"time"

	"github.com/openlongevity/longmap/internal/application/indexer"
	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/sources"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// fakeSimilar satisfies SimilarFinder with canned results.
type fakeSimilar struct {
	results []indexer.SimilarResource
	err     error
	gotID   common.ID
	gotTopK int
}

func (f *fakeSimilar) Similar(_ context.Context, id common.ID, topK int) ([]indexer.SimilarResource, error) {
	f.gotID = id
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// stubSource feeds canned documents into the fetch runner.
type stubSource struct {
	name string
	docs []sources.Document
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchRecent(context.Context, time.Time, int) ([]sources.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

// failingCache satisfies redis.Cache with an unreachable backend.
type failingCache struct{}

func (failingCache) Get(context.Context, string, interface{}) error {
	return errors.Unavailable("redis down")
}

func (failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.Unavailable("redis down")
}

func (failingCache) Delete(context.Context, ...string) error {
	return errors.Unavailable("redis down")
}

func (failingCache) Exists(context.Context, string) (bool, error) {
	return false, errors.Unavailable("redis down")
}

func (failingCache) GetOrSet(context.Context, string, interface{}, time.Duration, func(context.Context) (interface{}, error)) error {
	return errors.Unavailable("redis down")
}

func (failingCache) DeleteByPrefix(context.Context, string) (int64, error) {
	return 0, errors.Unavailable("redis down")
}

func (failingCache) Ping(context.Context) error {
	return errors.Unavailable("redis down")
}

// In-memory repository fakes. Each keeps just enough state for the handler
// under test and records the filters it was called with.

type fakeProblems struct {
	byID      map[common.ID]*problem.Problem
	listed    []*problem.Problem
	gotFilter problem.ListFilter
}

func newFakeProblems() *fakeProblems {
	return &fakeProblems{byID: make(map[common.ID]*problem.Problem)}
}

func (f *fakeProblems) add(p *problem.Problem) {
	f.byID[p.ID] = p
	f.listed = append(f.listed, p)
}

func (f *fakeProblems) Create(_ context.Context, p *problem.Problem) error {
	f.add(p)
	return nil
}

func (f *fakeProblems) GetByID(_ context.Context, id common.ID) (*problem.Problem, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, errors.NotFound("problem", id.String())
	}
	return p, nil
}

func (f *fakeProblems) GetBySource(_ context.Context, source, sourceID string) (*problem.Problem, error) {
	for _, p := range f.listed {
		if p.Source == source && p.SourceID == sourceID {
			return p, nil
		}
	}
	return nil, errors.NotFound("problem", source+"/"+sourceID)
}

func (f *fakeProblems) ExistsBySource(_ context.Context, source, sourceID string) (bool, error) {
	for _, p := range f.listed {
		if p.Source == source && p.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProblems) List(_ context.Context, filter problem.ListFilter) ([]*problem.Problem, error) {
	f.gotFilter = filter
	if filter.Category == nil {
		return f.listed, nil
	}
	var out []*problem.Problem
	for _, p := range f.listed {
		if p.Category == *filter.Category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProblems) Count(context.Context) (int64, error) {
	return int64(len(f.listed)), nil
}

func (f *fakeProblems) CountByCategory(context.Context) (map[problem.Category]int64, error) {
	out := make(map[problem.Category]int64)
	for _, p := range f.listed {
		out[p.Category]++
	}
	return out, nil
}

type fakeCapabilities struct {
	byID      map[common.ID]*capability.Capability
	listed    []*capability.Capability
	keystones []*capability.WithProblemCount
}

func newFakeCapabilities() *fakeCapabilities {
	return &fakeCapabilities{byID: make(map[common.ID]*capability.Capability)}
}

func (f *fakeCapabilities) add(c *capability.Capability) {
	f.byID[c.ID] = c
	f.listed = append(f.listed, c)
}

func (f *fakeCapabilities) Create(_ context.Context, c *capability.Capability) error {
	f.add(c)
	return nil
}

func (f *fakeCapabilities) GetByID(_ context.Context, id common.ID) (*capability.Capability, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errors.NotFound("capability", id.String())
	}
	return c, nil
}

func (f *fakeCapabilities) GetByNameAndType(_ context.Context, name string, typ capability.Type) (*capability.Capability, error) {
	for _, c := range f.listed {
		if c.Name == name && c.Type == typ {
			return c, nil
		}
	}
	return nil, errors.NotFound("capability", name)
}

func (f *fakeCapabilities) Upsert(_ context.Context, c *capability.Capability) (*capability.Capability, error) {
	for _, existing := range f.listed {
		if existing.Name == c.Name && existing.Type == c.Type {
			return existing, nil
		}
	}
	f.add(c)
	return c, nil
}

func (f *fakeCapabilities) List(_ context.Context, limit, offset int) ([]*capability.Capability, error) {
	if offset >= len(f.listed) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.listed) {
		end = len(f.listed)
	}
	return f.listed[offset:end], nil
}

func (f *fakeCapabilities) Count(context.Context) (int64, error) {
	return int64(len(f.listed)), nil
}

func (f *fakeCapabilities) ListKeystone(_ context.Context, n int) ([]*capability.WithProblemCount, error) {
	if n > len(f.keystones) {
		n = len(f.keystones)
	}
	return f.keystones[:n], nil
}

type fakeResources struct {
	byID    map[common.ID]*resource.Resource
	listed  []*resource.Resource
	updated []*resource.Resource
}

func newFakeResources() *fakeResources {
	return &fakeResources{byID: make(map[common.ID]*resource.Resource)}
}

func (f *fakeResources) add(r *resource.Resource) {
	f.byID[r.ID] = r
	f.listed = append(f.listed, r)
}

func (f *fakeResources) Create(_ context.Context, r *resource.Resource) error {
	f.add(r)
	return nil
}

func (f *fakeResources) GetByID(_ context.Context, id common.ID) (*resource.Resource, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, errors.NotFound("resource", id.String())
	}
	return r, nil
}

func (f *fakeResources) Update(_ context.Context, r *resource.Resource) error {
	f.updated = append(f.updated, r)
	f.byID[r.ID] = r
	return nil
}

func (f *fakeResources) List(_ context.Context, filter resource.ListFilter) ([]*resource.Resource, error) {
	var out []*resource.Resource
	for _, r := range f.listed {
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		if len(filter.Types) > 0 && r.Type != filter.Types[0] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeResources) Count(context.Context) (int64, error) {
	return int64(len(f.listed)), nil
}

func (f *fakeResources) ListActive(_ context.Context) ([]*resource.Resource, error) {
	var out []*resource.Resource
	for _, r := range f.listed {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResources) ListActiveByTypes(ctx context.Context, types []resource.Type) ([]*resource.Resource, error) {
	return f.List(ctx, resource.ListFilter{Types: types, ActiveOnly: true})
}

type fakeProblemCapabilities struct {
	byProblem map[common.ID][]*mapping.ProblemCapability
}

func newFakeProblemCapabilities() *fakeProblemCapabilities {
	return &fakeProblemCapabilities{byProblem: make(map[common.ID][]*mapping.ProblemCapability)}
}

func (f *fakeProblemCapabilities) Upsert(_ context.Context, m *mapping.ProblemCapability) error {
	f.byProblem[m.ProblemID] = append(f.byProblem[m.ProblemID], m)
	return nil
}

func (f *fakeProblemCapabilities) ListByProblem(_ context.Context, problemID common.ID) ([]*mapping.ProblemCapability, error) {
	return f.byProblem[problemID], nil
}

func (f *fakeProblemCapabilities) ListByCapability(_ context.Context, capabilityID common.ID) ([]*mapping.ProblemCapability, error) {
	var out []*mapping.ProblemCapability
	for _, links := range f.byProblem {
		for _, m := range links {
			if m.CapabilityID == capabilityID {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeProblemCapabilities) CountRequiredByCapability(_ context.Context, capabilityID common.ID) (int64, error) {
	var n int64
	for _, links := range f.byProblem {
		for _, m := range links {
			if m.CapabilityID == capabilityID && m.IsRequired {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeProblemCapabilities) DeleteByProblem(_ context.Context, problemID common.ID) error {
	delete(f.byProblem, problemID)
	return nil
}

type fakeCapabilityResources struct {
	byCapability map[common.ID][]*mapping.CapabilityResource
	deleted      []common.ID
}

func newFakeCapabilityResources() *fakeCapabilityResources {
	return &fakeCapabilityResources{byCapability: make(map[common.ID][]*mapping.CapabilityResource)}
}

func (f *fakeCapabilityResources) Upsert(_ context.Context, m *mapping.CapabilityResource) error {
	f.byCapability[m.CapabilityID] = append(f.byCapability[m.CapabilityID], m)
	return nil
}

func (f *fakeCapabilityResources) ListByCapability(_ context.Context, capabilityID common.ID) ([]*mapping.CapabilityResource, error) {
	return f.byCapability[capabilityID], nil
}

func (f *fakeCapabilityResources) HasMatchAbove(_ context.Context, capabilityID common.ID, threshold float64) (bool, error) {
	for _, m := range f.byCapability[capabilityID] {
		if m.MatchScore >= threshold {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCapabilityResources) DeleteByResource(_ context.Context, resourceID common.ID) error {
	f.deleted = append(f.deleted, resourceID)
	for capID, links := range f.byCapability {
		kept := links[:0]
		for _, m := range links {
			if m.ResourceID != resourceID {
				kept = append(kept, m)
			}
		}
		f.byCapability[capID] = kept
	}
	return nil
}

type fakeGaps struct {
	byID    map[common.ID]*gap.Gap
	listed  []*gap.Gap
	gotTopN int
}

func newFakeGaps() *fakeGaps {
	return &fakeGaps{byID: make(map[common.ID]*gap.Gap)}
}

func (f *fakeGaps) add(g *gap.Gap) {
	f.byID[g.ID] = g
	f.listed = append(f.listed, g)
}

func (f *fakeGaps) Upsert(_ context.Context, g *gap.Gap) error {
	f.add(g)
	return nil
}

func (f *fakeGaps) GetByID(_ context.Context, id common.ID) (*gap.Gap, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, errors.NotFound("gap", id.String())
	}
	return g, nil
}

func (f *fakeGaps) GetByCapability(_ context.Context, capabilityID common.ID) (*gap.Gap, error) {
	for _, g := range f.listed {
		if g.CapabilityID == capabilityID {
			return g, nil
		}
	}
	return nil, errors.NotFound("gap", capabilityID.String())
}

func (f *fakeGaps) DeleteByCapability(_ context.Context, capabilityID common.ID) error {
	kept := f.listed[:0]
	for _, g := range f.listed {
		if g.CapabilityID == capabilityID {
			delete(f.byID, g.ID)
			continue
		}
		kept = append(kept, g)
	}
	f.listed = kept
	return nil
}

func (f *fakeGaps) List(_ context.Context, filter gap.ListFilter) ([]*gap.Gap, error) {
	var out []*gap.Gap
	for _, g := range f.listed {
		if filter.Priority != nil && g.Priority != *filter.Priority {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGaps) Count(context.Context) (int64, error) {
	return int64(len(f.listed)), nil
}

func (f *fakeGaps) ListTopByImpact(_ context.Context, n int) ([]*gap.Gap, error) {
	f.gotTopN = n
	if n > len(f.listed) {
		n = len(f.listed)
	}
	return f.listed[:n], nil
}

func (f *fakeGaps) CountByPriority(context.Context) (map[gap.Priority]int64, error) {
	out := make(map[gap.Priority]int64)
	for _, g := range f.listed {
		out[g.Priority]++
	}
	return out, nil
}

func (f *fakeGaps) SumBlockedValue(context.Context) (float64, error) {
	var sum float64
	for _, g := range f.listed {
		sum += g.BlockedResearchValue
	}
	return sum, nil
}
