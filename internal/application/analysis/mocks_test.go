package analysis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/messaging/kafka"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

type fakeProblems struct {
	count      int64
	byCategory map[problem.Category]int64
	list       []*problem.Problem
	gotLimit   int
}

func (f *fakeProblems) Count(context.Context) (int64, error) { return f.count, nil }

func (f *fakeProblems) CountByCategory(context.Context) (map[problem.Category]int64, error) {
	return f.byCategory, nil
}

func (f *fakeProblems) List(_ context.Context, filter problem.ListFilter) ([]*problem.Problem, error) {
	f.gotLimit = filter.Limit
	return f.list, nil
}

func (f *fakeProblems) Create(context.Context, *problem.Problem) error { return nil }

func (f *fakeProblems) GetByID(_ context.Context, id common.ID) (*problem.Problem, error) {
	return nil, errors.NotFound("problem", string(id))
}

func (f *fakeProblems) GetBySource(_ context.Context, source, sourceID string) (*problem.Problem, error) {
	return nil, errors.NotFound("problem", source+"/"+sourceID)
}

func (f *fakeProblems) ExistsBySource(context.Context, string, string) (bool, error) {
	return false, nil
}

type fakeCapabilities struct {
	all       []*capability.Capability
	count     int64
	keystones []*capability.WithProblemCount

	gotKeystoneN int
	listCalls    int
}

func (f *fakeCapabilities) List(_ context.Context, limit, offset int) ([]*capability.Capability, error) {
	f.listCalls++
	if offset >= len(f.all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.all) {
		end = len(f.all)
	}
	return f.all[offset:end], nil
}

func (f *fakeCapabilities) Count(context.Context) (int64, error) { return f.count, nil }

func (f *fakeCapabilities) ListKeystone(_ context.Context, n int) ([]*capability.WithProblemCount, error) {
	f.gotKeystoneN = n
	return f.keystones, nil
}

func (f *fakeCapabilities) GetByID(_ context.Context, id common.ID) (*capability.Capability, error) {
	for _, c := range f.all {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, errors.NotFound("capability", string(id))
}

func (f *fakeCapabilities) Create(context.Context, *capability.Capability) error { return nil }

func (f *fakeCapabilities) GetByNameAndType(_ context.Context, name string, _ capability.Type) (*capability.Capability, error) {
	return nil, errors.NotFound("capability", name)
}

func (f *fakeCapabilities) Upsert(_ context.Context, c *capability.Capability) (*capability.Capability, error) {
	return c, nil
}

type fakeResources struct {
	active []*resource.Resource
	count  int64
}

func (f *fakeResources) ListActive(context.Context) ([]*resource.Resource, error) {
	return f.active, nil
}

func (f *fakeResources) Count(context.Context) (int64, error) { return f.count, nil }

func (f *fakeResources) Create(context.Context, *resource.Resource) error { return nil }

func (f *fakeResources) GetByID(_ context.Context, id common.ID) (*resource.Resource, error) {
	return nil, errors.NotFound("resource", string(id))
}

func (f *fakeResources) Update(context.Context, *resource.Resource) error { return nil }

func (f *fakeResources) List(context.Context, resource.ListFilter) ([]*resource.Resource, error) {
	return nil, nil
}

func (f *fakeResources) ListActiveByTypes(context.Context, []resource.Type) ([]*resource.Resource, error) {
	return nil, nil
}

type fakeProblemCapabilities struct {
	requiredByCap map[common.ID]int64
	byProblem     map[common.ID][]*mapping.ProblemCapability
}

func (f *fakeProblemCapabilities) CountRequiredByCapability(_ context.Context, capabilityID common.ID) (int64, error) {
	return f.requiredByCap[capabilityID], nil
}

func (f *fakeProblemCapabilities) ListByProblem(_ context.Context, problemID common.ID) ([]*mapping.ProblemCapability, error) {
	return f.byProblem[problemID], nil
}

func (f *fakeProblemCapabilities) Upsert(context.Context, *mapping.ProblemCapability) error {
	return nil
}

func (f *fakeProblemCapabilities) ListByCapability(context.Context, common.ID) ([]*mapping.ProblemCapability, error) {
	return nil, nil
}

func (f *fakeProblemCapabilities) DeleteByProblem(context.Context, common.ID) error { return nil }

type fakeCapabilityResources struct {
	matched map[common.ID]bool
}

func (f *fakeCapabilityResources) HasMatchAbove(_ context.Context, capabilityID common.ID, _ float64) (bool, error) {
	return f.matched[capabilityID], nil
}

func (f *fakeCapabilityResources) Upsert(context.Context, *mapping.CapabilityResource) error {
	return nil
}

func (f *fakeCapabilityResources) ListByCapability(context.Context, common.ID) ([]*mapping.CapabilityResource, error) {
	return nil, nil
}

func (f *fakeCapabilityResources) DeleteByResource(context.Context, common.ID) error { return nil }

type fakeGaps struct {
	mu           sync.Mutex
	byCapability map[common.ID]*gap.Gap
	count        int64
	blockedSum   float64
	byPriority   map[gap.Priority]int64
	topByImpact  []*gap.Gap

	upserted  []*gap.Gap
	deleted   []common.ID
	gotTopN   int
	upsertErr error
}

func newFakeGaps() *fakeGaps {
	return &fakeGaps{byCapability: make(map[common.ID]*gap.Gap)}
}

func (f *fakeGaps) Upsert(_ context.Context, g *gap.Gap) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, g)
	f.byCapability[g.CapabilityID] = g
	return nil
}

func (f *fakeGaps) GetByCapability(_ context.Context, capabilityID common.ID) (*gap.Gap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.byCapability[capabilityID]; ok {
		return g, nil
	}
	return nil, errors.NotFound("gap", "capability="+string(capabilityID))
}

func (f *fakeGaps) DeleteByCapability(_ context.Context, capabilityID common.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, capabilityID)
	delete(f.byCapability, capabilityID)
	return nil
}

func (f *fakeGaps) GetByID(_ context.Context, id common.ID) (*gap.Gap, error) {
	return nil, errors.NotFound("gap", string(id))
}

func (f *fakeGaps) List(context.Context, gap.ListFilter) ([]*gap.Gap, error) { return nil, nil }

func (f *fakeGaps) Count(context.Context) (int64, error) { return f.count, nil }

func (f *fakeGaps) ListTopByImpact(_ context.Context, n int) ([]*gap.Gap, error) {
	f.gotTopN = n
	if n < len(f.topByImpact) {
		return f.topByImpact[:n], nil
	}
	return f.topByImpact, nil
}

func (f *fakeGaps) CountByPriority(context.Context) (map[gap.Priority]int64, error) {
	return f.byPriority, nil
}

func (f *fakeGaps) SumBlockedValue(context.Context) (float64, error) { return f.blockedSum, nil }

type publishedEvent struct {
	topic string
	key   string
	env   *kafka.Envelope
}

type mockPublisher struct {
	mu        sync.Mutex
	published []publishedEvent
}

func (m *mockPublisher) Publish(_ context.Context, topic, key string, env *kafka.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedEvent{topic: topic, key: key, env: env})
	return nil
}

func (m *mockPublisher) byTopic(topic string) []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedEvent
	for _, e := range m.published {
		if e.topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// fakeCache serializes through JSON exactly like the redis-backed cache, so
// type round-trips are exercised.
type fakeCache struct {
	mu      sync.Mutex
	store   map[string][]byte
	hits    int
	misses  int
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string][]byte)}
}

func (c *fakeCache) GetOrSet(ctx context.Context, key string, dest interface{}, _ time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	c.mu.Lock()
	cached, ok := c.store[key]
	c.mu.Unlock()
	if ok {
		c.hits++
		return json.Unmarshal(cached, dest)
	}

	c.misses++
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.store[key] = data
	c.mu.Unlock()
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, prefix)
	var n int64
	for k := range c.store {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.store, k)
			n++
		}
	}
	return n, nil
}
