package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/search/milvus"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

type fakeResources struct {
	active   []*resource.Resource
	inactive []*resource.Resource
}

func (f *fakeResources) all() []*resource.Resource {
	return append(append([]*resource.Resource{}, f.active...), f.inactive...)
}

func (f *fakeResources) Create(context.Context, *resource.Resource) error { return nil }
func (f *fakeResources) GetByID(_ context.Context, id common.ID) (*resource.Resource, error) {
	for _, r := range f.all() {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.NotFound("resource", id.String())
}
func (f *fakeResources) Update(context.Context, *resource.Resource) error { return nil }
func (f *fakeResources) List(context.Context, resource.ListFilter) ([]*resource.Resource, error) {
	return f.all(), nil
}
func (f *fakeResources) Count(ctx context.Context) (int64, error) {
	return int64(len(f.all())), nil
}
func (f *fakeResources) ListActive(context.Context) ([]*resource.Resource, error) {
	return f.active, nil
}
func (f *fakeResources) ListActiveByTypes(context.Context, []resource.Type) ([]*resource.Resource, error) {
	return f.active, nil
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

type fakeIndex struct {
	ensured  bool
	upserted []milvus.ResourceVector
	deleted  []common.ID
	hits     []milvus.Hit
	gotTopK  int
}

func (f *fakeIndex) EnsureCollection(context.Context) error { f.ensured = true; return nil }
func (f *fakeIndex) Upsert(_ context.Context, items []milvus.ResourceVector) error {
	f.upserted = append(f.upserted, items...)
	return nil
}
func (f *fakeIndex) DeleteByID(_ context.Context, id common.ID) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int, _ []string) ([]milvus.Hit, error) {
	f.gotTopK = topK
	return f.hits, nil
}

func makeResources(t *testing.T, n int) []*resource.Resource {
	t.Helper()
	out := make([]*resource.Resource, 0, n)
	for i := 0; i < n; i++ {
		r, err := resource.New(fmt.Sprintf("Facility %d", i), "sequencing", resource.TypeCoreFacility)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestSyncActiveIndexesEveryResource(t *testing.T) {
	resources := &fakeResources{active: makeResources(t, 3)}
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	svc := New(resources, embedder, index, nil)

	indexed, err := svc.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, indexed)
	assert.True(t, index.ensured)
	require.Len(t, index.upserted, 3)
	assert.Equal(t, resources.active[0].ID, index.upserted[0].ID)
	assert.Equal(t, string(resource.TypeCoreFacility), index.upserted[0].Type)
	assert.Equal(t, 1, embedder.calls)
}

func TestSyncActiveBatchesEmbeddings(t *testing.T) {
	resources := &fakeResources{active: makeResources(t, embedBatchSize+5)}
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	svc := New(resources, embedder, index, nil)

	indexed, err := svc.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, embedBatchSize+5, indexed)
	assert.Equal(t, 2, embedder.calls)
}

func TestSyncActiveSurfacesEmbeddingFailure(t *testing.T) {
	resources := &fakeResources{active: makeResources(t, 2)}
	embedder := &fakeEmbedder{err: errors.Unavailable("provider down")}
	svc := New(resources, embedder, &fakeIndex{}, nil)

	_, err := svc.SyncActive(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeEmbeddingFailed))
}

func TestSyncActiveEmptyCatalog(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	svc := New(&fakeResources{}, embedder, index, nil)

	indexed, err := svc.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, indexed)
	assert.Zero(t, embedder.calls)
}

func TestSyncActivePrunesDeactivated(t *testing.T) {
	retired, err := resource.New("Retired facility", "imaging", resource.TypeCoreFacility)
	require.NoError(t, err)
	retired.Deactivate()

	resources := &fakeResources{active: makeResources(t, 2), inactive: []*resource.Resource{retired}}
	index := &fakeIndex{}
	svc := New(resources, &fakeEmbedder{}, index, nil)

	indexed, err := svc.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
	assert.Equal(t, []common.ID{retired.ID}, index.deleted)
}

func TestRemove(t *testing.T) {
	index := &fakeIndex{}
	svc := New(&fakeResources{}, &fakeEmbedder{}, index, nil)

	id := common.NewID()
	require.NoError(t, svc.Remove(context.Background(), id))
	assert.Equal(t, []common.ID{id}, index.deleted)
}

func TestSimilarExcludesSelfAndMissingRows(t *testing.T) {
	catalog := makeResources(t, 3)
	resources := &fakeResources{active: catalog}
	index := &fakeIndex{hits: []milvus.Hit{
		{ID: catalog[0].ID, Score: 1.0},
		{ID: catalog[1].ID, Score: 0.93},
		{ID: common.NewID(), Score: 0.91}, // deleted since last sync
		{ID: catalog[2].ID, Score: 0.88},
	}}
	svc := New(resources, &fakeEmbedder{}, index, nil)

	similar, err := svc.Similar(context.Background(), catalog[0].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, index.gotTopK)
	require.Len(t, similar, 2)
	assert.Equal(t, catalog[1].ID, similar[0].Resource.ID)
	assert.InDelta(t, 0.93, similar[0].Score, 1e-6)
	assert.Equal(t, catalog[2].ID, similar[1].Resource.ID)
}

func TestSimilarUnknownResource(t *testing.T) {
	svc := New(&fakeResources{}, &fakeEmbedder{}, &fakeIndex{}, nil)

	_, err := svc.Similar(context.Background(), common.NewID(), 5)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
