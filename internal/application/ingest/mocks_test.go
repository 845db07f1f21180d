package ingest

import (
	"context"
	"sync"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/messaging/kafka"
	"github.com/openlongevity/longmap/internal/infrastructure/storage/minio"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// In-memory fakes for the repository contracts. Only the methods the ingest
// service touches carry behavior; the rest satisfy the interfaces.

type fakeProblems struct {
	mu        sync.Mutex
	created   []*problem.Problem
	existing  map[string]bool
	createErr error
	existsErr error
}

func newFakeProblems() *fakeProblems {
	return &fakeProblems{existing: make(map[string]bool)}
}

func (f *fakeProblems) Create(_ context.Context, p *problem.Problem) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, p)
	if key := p.SourceKey(); key != "" {
		f.existing[key] = true
	}
	return nil
}

func (f *fakeProblems) ExistsBySource(_ context.Context, source, sourceID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[source+"/"+sourceID], nil
}

func (f *fakeProblems) GetByID(_ context.Context, id common.ID) (*problem.Problem, error) {
	return nil, errors.NotFound("problem", string(id))
}

func (f *fakeProblems) GetBySource(_ context.Context, source, sourceID string) (*problem.Problem, error) {
	return nil, errors.NotFound("problem", source+"/"+sourceID)
}

func (f *fakeProblems) List(context.Context, problem.ListFilter) ([]*problem.Problem, error) {
	return nil, nil
}

func (f *fakeProblems) Count(context.Context) (int64, error) { return 0, nil }

func (f *fakeProblems) CountByCategory(context.Context) (map[problem.Category]int64, error) {
	return nil, nil
}

type fakeCapabilities struct {
	mu        sync.Mutex
	byKey     map[string]*capability.Capability
	upserts   int
	upsertErr error
}

func newFakeCapabilities() *fakeCapabilities {
	return &fakeCapabilities{byKey: make(map[string]*capability.Capability)}
}

func (f *fakeCapabilities) Upsert(_ context.Context, c *capability.Capability) (*capability.Capability, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	key := c.Name + "|" + string(c.Type)
	if existing, ok := f.byKey[key]; ok {
		return existing, nil
	}
	f.byKey[key] = c
	return c, nil
}

func (f *fakeCapabilities) Create(context.Context, *capability.Capability) error { return nil }

func (f *fakeCapabilities) GetByID(_ context.Context, id common.ID) (*capability.Capability, error) {
	return nil, errors.NotFound("capability", string(id))
}

func (f *fakeCapabilities) GetByNameAndType(_ context.Context, name string, _ capability.Type) (*capability.Capability, error) {
	return nil, errors.NotFound("capability", name)
}

func (f *fakeCapabilities) List(context.Context, int, int) ([]*capability.Capability, error) {
	return nil, nil
}

func (f *fakeCapabilities) Count(context.Context) (int64, error) { return 0, nil }

func (f *fakeCapabilities) ListKeystone(context.Context, int) ([]*capability.WithProblemCount, error) {
	return nil, nil
}

type fakeResources struct {
	active    []*resource.Resource
	activeErr error
	calls     int
	mu        sync.Mutex
}

func (f *fakeResources) ListActive(context.Context) ([]*resource.Resource, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakeResources) Create(context.Context, *resource.Resource) error { return nil }

func (f *fakeResources) GetByID(_ context.Context, id common.ID) (*resource.Resource, error) {
	return nil, errors.NotFound("resource", string(id))
}

func (f *fakeResources) Update(context.Context, *resource.Resource) error { return nil }

func (f *fakeResources) List(context.Context, resource.ListFilter) ([]*resource.Resource, error) {
	return nil, nil
}

func (f *fakeResources) Count(context.Context) (int64, error) { return 0, nil }

func (f *fakeResources) ListActiveByTypes(context.Context, []resource.Type) ([]*resource.Resource, error) {
	return nil, nil
}

type fakeProblemCapabilities struct {
	mu      sync.Mutex
	upserts []*mapping.ProblemCapability
}

func (f *fakeProblemCapabilities) Upsert(_ context.Context, m *mapping.ProblemCapability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, m)
	return nil
}

func (f *fakeProblemCapabilities) ListByProblem(context.Context, common.ID) ([]*mapping.ProblemCapability, error) {
	return nil, nil
}

func (f *fakeProblemCapabilities) ListByCapability(context.Context, common.ID) ([]*mapping.ProblemCapability, error) {
	return nil, nil
}

func (f *fakeProblemCapabilities) CountRequiredByCapability(context.Context, common.ID) (int64, error) {
	return 0, nil
}

func (f *fakeProblemCapabilities) DeleteByProblem(context.Context, common.ID) error { return nil }

type fakeCapabilityResources struct {
	mu      sync.Mutex
	upserts []*mapping.CapabilityResource
}

func (f *fakeCapabilityResources) Upsert(_ context.Context, m *mapping.CapabilityResource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, m)
	return nil
}

func (f *fakeCapabilityResources) ListByCapability(context.Context, common.ID) ([]*mapping.CapabilityResource, error) {
	return nil, nil
}

func (f *fakeCapabilityResources) HasMatchAbove(context.Context, common.ID, float64) (bool, error) {
	return false, nil
}

func (f *fakeCapabilityResources) DeleteByResource(context.Context, common.ID) error { return nil }

type mockArchiver struct {
	mu       sync.Mutex
	stored   []minio.Payload
	storeErr error
}

func (m *mockArchiver) Store(_ context.Context, p minio.Payload) (string, error) {
	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, p)
	return p.Source + "/" + p.SourceID, nil
}

type publishedEvent struct {
	topic string
	key   string
	env   *kafka.Envelope
}

type mockPublisher struct {
	mu         sync.Mutex
	published  []publishedEvent
	publishErr error
}

func (m *mockPublisher) Publish(_ context.Context, topic, key string, env *kafka.Envelope) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedEvent{topic: topic, key: key, env: env})
	return nil
}
