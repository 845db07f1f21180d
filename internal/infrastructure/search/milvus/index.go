// Package milvus maintains the resource embedding collection. The matcher
// uses it to pre-screen match candidates and the duplicate detector to find
// near-identical catalog entries without scoring every pair.
package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

const (
	collectionSuffix = "resources"

	idField     = "id"
	typeField   = "type"
	vectorField = "vector"

	defaultDim  = 384
	defaultTopK = 10

	// HNSW build/search parameters; modest settings for a catalog that is
	// thousands of rows, not millions.
	hnswM              = 16
	hnswEfConstruction = 200
	hnswEfSearch       = 64
)

// NewClient connects to Milvus and verifies the connection.
func NewClient(ctx context.Context, cfg config.MilvusConfig, logger logging.Logger) (client.Client, error) {
	mc, err := client.NewClient(ctx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeVectorIndexError, "failed to connect to milvus")
	}
	logger.Info("milvus client connected",
		logging.String("addr", cfg.Addr),
		logging.String("db", cfg.DBName),
	)
	return mc, nil
}

// ResourceVector is one catalog entry in the vector index.
type ResourceVector struct {
	ID     common.ID
	Type   string
	Vector []float32
}

// Hit is a vector search result; Score is cosine similarity, higher is
// closer.
type Hit struct {
	ID    common.ID
	Score float32
}

// ResourceIndex wraps the resource embedding collection.
type ResourceIndex struct {
	mc         client.Client
	logger     logging.Logger
	collection string
	dim        int
	topK       int
}

// NewResourceIndex builds the index handle; call EnsureCollection before
// first use.
func NewResourceIndex(mc client.Client, cfg config.MilvusConfig, logger logging.Logger) *ResourceIndex {
	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = defaultDim
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ResourceIndex{
		mc:         mc,
		logger:     logger.Named("resource_index"),
		collection: cfg.CollectionPrefix + collectionSuffix,
		dim:        dim,
		topK:       topK,
	}
}

// Collection returns the fully-prefixed collection name.
func (i *ResourceIndex) Collection() string { return i.collection }

// EnsureCollection creates the collection, its HNSW index, and loads it.
// Calling it against an existing collection only (re)loads it.
func (i *ResourceIndex) EnsureCollection(ctx context.Context) error {
	has, err := i.mc.HasCollection(ctx, i.collection)
	if err != nil {
		return errors.Wrap(err, errors.CodeVectorIndexError, "failed to check collection")
	}

	if !has {
		schema := &entity.Schema{
			CollectionName: i.collection,
			Description:    "resource catalog embeddings",
			Fields: []*entity.Field{
				entity.NewField().WithName(idField).WithDataType(entity.FieldTypeVarChar).
					WithMaxLength(64).WithIsPrimaryKey(true),
				entity.NewField().WithName(typeField).WithDataType(entity.FieldTypeVarChar).
					WithMaxLength(64),
				entity.NewField().WithName(vectorField).WithDataType(entity.FieldTypeFloatVector).
					WithDim(int64(i.dim)),
			},
		}
		if err := i.mc.CreateCollection(ctx, schema, 1); err != nil {
			return errors.Wrap(err, errors.CodeVectorIndexError, "failed to create collection")
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, hnswM, hnswEfConstruction)
		if err != nil {
			return errors.Wrap(err, errors.CodeVectorIndexError, "failed to build index definition")
		}
		if err := i.mc.CreateIndex(ctx, i.collection, vectorField, idx, false); err != nil {
			return errors.Wrap(err, errors.CodeVectorIndexError, "failed to create vector index")
		}
		i.logger.Info("resource collection created",
			logging.String("collection", i.collection),
			logging.Int("dim", i.dim),
		)
	}

	if err := i.mc.LoadCollection(ctx, i.collection, false); err != nil {
		return errors.Wrap(err, errors.CodeVectorIndexError, "failed to load collection")
	}
	return nil
}

// Upsert writes vectors for the given resources, replacing any existing
// entries with the same IDs.
func (i *ResourceIndex) Upsert(ctx context.Context, items []ResourceVector) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	types := make([]string, len(items))
	vectors := make([][]float32, len(items))
	for n, item := range items {
		if len(item.Vector) != i.dim {
			return errors.Newf(errors.CodeVectorIndexError,
				"vector for resource %s has dimension %d, index expects %d", item.ID, len(item.Vector), i.dim)
		}
		ids[n] = string(item.ID)
		types[n] = item.Type
		vectors[n] = item.Vector
	}

	_, err := i.mc.Upsert(ctx, i.collection, "",
		entity.NewColumnVarChar(idField, ids),
		entity.NewColumnVarChar(typeField, types),
		entity.NewColumnFloatVector(vectorField, i.dim, vectors),
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeVectorIndexError, "failed to upsert resource vectors")
	}
	return nil
}

// DeleteByID removes a resource's vector; a missing ID is not an error.
func (i *ResourceIndex) DeleteByID(ctx context.Context, id common.ID) error {
	expr := fmt.Sprintf(`%s == "%s"`, idField, id)
	if err := i.mc.Delete(ctx, i.collection, "", expr); err != nil {
		return errors.Wrap(err, errors.CodeVectorIndexError, "failed to delete resource vector")
	}
	return nil
}

// Search returns the topK nearest resources to the query vector, optionally
// restricted to a set of resource types. topK <= 0 uses the configured
// default.
func (i *ResourceIndex) Search(ctx context.Context, vector []float32, topK int, types []string) ([]Hit, error) {
	if len(vector) != i.dim {
		return nil, errors.Newf(errors.CodeVectorIndexError,
			"query vector has dimension %d, index expects %d", len(vector), i.dim)
	}
	if topK <= 0 {
		topK = i.topK
	}

	sp, err := entity.NewIndexHNSWSearchParam(hnswEfSearch)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeVectorIndexError, "failed to build search params")
	}

	results, err := i.mc.Search(ctx, i.collection, nil, typeFilter(types), []string{idField},
		[]entity.Vector{entity.FloatVector(vector)}, vectorField, entity.COSINE, topK, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeVectorIndexError, "vector search failed")
	}

	var hits []Hit
	for _, res := range results {
		for n := 0; n < res.ResultCount; n++ {
			id, err := res.IDs.GetAsString(n)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeVectorIndexError, "failed to read search hit id")
			}
			hits = append(hits, Hit{ID: common.ID(id), Score: res.Scores[n]})
		}
	}
	return hits, nil
}

// typeFilter builds the boolean expression restricting hits to the given
// resource types. An empty list means no restriction.
func typeFilter(types []string) string {
	if len(types) == 0 {
		return ""
	}
	quoted := make([]string, len(types))
	for n, t := range types {
		quoted[n] = `"` + t + `"`
	}
	return typeField + " in [" + strings.Join(quoted, ", ") + "]"
}
