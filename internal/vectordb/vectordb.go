// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package vectordb implements the Vector Store (spec.md §4.9): a
// multi-collection wrapper over Qdrant supporting create/delete/upsert/
// search/delete/reindex/list, structured filters, and project-scoped
// collection name resolution. Grounded on the teacher's single-collection
// internal/vectordb/vectordb.go, generalized to name every call site by
// collection instead of a hardcoded "the_hive" name.
package vectordb

import (
	"context"
	"errors"
	"fmt"
	"log"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// Metric is a supported similarity metric for a collection.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricEuclid Metric = "euclidean"
	MetricDot    Metric = "dot"
)

// Match represents a vector search hit.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// CollectionInfo summarizes a collection for list_collections().
type CollectionInfo struct {
	Name  string
	Dim   int
	Count int
}

// FilterOp names a supported structured predicate operator.
type FilterOp string

const (
	FilterEq    FilterOp = "eq"
	FilterAnyOf FilterOp = "any_of"
	FilterRange FilterOp = "range" // ISO-8601 timestamp range
)

// Filter is a single structured predicate over payload fields. Unsupported
// Op values MUST surface as an error, never be silently ignored.
type Filter struct {
	Field  string
	Op     FilterOp
	Value  string   // for FilterEq
	Values []string // for FilterAnyOf
	Gte    string   // for FilterRange, ISO-8601, inclusive
	Lte    string   // for FilterRange, ISO-8601, inclusive
}

// Resolver maps a logical collection name ("documents") to a physical one
// ("project_<id>_documents") when a project context is bound. Supplied by
// the Frame; nil means no project scoping is active.
type Resolver func(logical string) string

// VectorDB is the Vector Store contract, spec.md §4.9.
type VectorDB interface {
	CreateCollection(ctx context.Context, name string, dim int, metric Metric) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, id string, vector []float32, payload map[string]string) error
	Search(ctx context.Context, collection string, queryVector []float32, limit int, scoreThreshold *float32, filters []Filter) ([]Match, error)
	Delete(ctx context.Context, collection string, ids []string, filters []Filter) error
	Reindex(ctx context.Context, collection string) error
	ListCollections(ctx context.Context) ([]CollectionInfo, error)
}

// QdrantVectorDB is the production VectorDB backed by a Qdrant gRPC
// connection, scoped by Resolver for multi-project deployments.
type QdrantVectorDB struct {
	collectionsSvc qdrant.CollectionsClient
	pointsSvc      qdrant.PointsClient
	resolve        Resolver
}

func NewQdrantVectorDB(conn *grpc.ClientConn, resolve Resolver) (*QdrantVectorDB, error) {
	if conn == nil {
		return nil, errors.New("gRPC connection is required")
	}
	if resolve == nil {
		resolve = func(logical string) string { return logical }
	}
	return &QdrantVectorDB{
		collectionsSvc: qdrant.NewCollectionsClient(conn),
		pointsSvc:      qdrant.NewPointsClient(conn),
		resolve:        resolve,
	}, nil
}

func metricToDistance(m Metric) (qdrant.Distance, error) {
	switch m {
	case MetricCosine, "":
		return qdrant.Distance_Cosine, nil
	case MetricEuclid:
		return qdrant.Distance_Euclid, nil
	case MetricDot:
		return qdrant.Distance_Dot, nil
	default:
		return 0, apperr.Validation("unsupported metric %q", m)
	}
}

func (q *QdrantVectorDB) CreateCollection(ctx context.Context, name string, dim int, metric Metric) error {
	dist, err := metricToDistance(metric)
	if err != nil {
		return err
	}
	phys := q.resolve(name)
	_, err = q.collectionsSvc.Create(ctx, &qdrant.CreateCollection{
		CollectionName: phys,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{Size: uint64(dim), Distance: dist},
			},
		},
	})
	if err != nil {
		return apperr.DependencyUnavailable(err, "create collection %s", phys)
	}
	log.Printf("vectordb: created collection %s (dim=%d metric=%s)", phys, dim, metric)
	return nil
}

func (q *QdrantVectorDB) DeleteCollection(ctx context.Context, name string) error {
	phys := q.resolve(name)
	_, err := q.collectionsSvc.Delete(ctx, &qdrant.DeleteCollection{CollectionName: phys})
	if err != nil {
		return apperr.DependencyUnavailable(err, "delete collection %s", phys)
	}
	return nil
}

// Reindex recreates a collection's index in place; Qdrant rebuilds it on
// UpdateCollection, so this is a touch rather than a delete+recreate.
func (q *QdrantVectorDB) Reindex(ctx context.Context, name string) error {
	phys := q.resolve(name)
	if _, err := q.collectionsSvc.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: phys}); err != nil {
		return apperr.DependencyUnavailable(err, "inspect collection %s for reindex", phys)
	}
	if _, err := q.collectionsSvc.UpdateCollection(ctx, &qdrant.UpdateCollection{CollectionName: phys}); err != nil {
		return apperr.DependencyUnavailable(err, "reindex collection %s", phys)
	}
	return nil
}

func (q *QdrantVectorDB) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	resp, err := q.collectionsSvc.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return nil, apperr.DependencyUnavailable(err, "list collections")
	}

	out := make([]CollectionInfo, 0, len(resp.Collections))
	for _, c := range resp.Collections {
		info, err := q.collectionsSvc.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: c.Name})
		if err != nil {
			continue
		}
		ci := CollectionInfo{Name: c.Name}
		if info.Result != nil && info.Result.PointsCount != nil {
			ci.Count = int(*info.Result.PointsCount)
		}
		out = append(out, ci)
	}
	return out, nil
}

func (q *QdrantVectorDB) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]string) error {
	if len(vector) == 0 {
		return apperr.Validation("vector cannot be empty")
	}
	phys := q.resolve(collection)

	qpayload := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		qpayload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vector}},
		},
		Payload: qpayload,
	}

	_, err := q.pointsSvc.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: phys,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return apperr.DependencyUnavailable(err, "upsert point %s into %s", id, phys)
	}
	return nil
}

func (q *QdrantVectorDB) Search(ctx context.Context, collection string, queryVector []float32, limit int, scoreThreshold *float32, filters []Filter) ([]Match, error) {
	if len(queryVector) == 0 {
		return nil, apperr.Validation("query vector cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	phys := q.resolve(collection)

	qfilter, err := buildFilter(filters)
	if err != nil {
		return nil, err
	}

	req := &qdrant.SearchPoints{
		CollectionName: phys,
		Vector:         queryVector,
		Limit:          uint64(limit),
		Filter:         qfilter,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &qdrant.WithVectorsSelector{SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: false}},
	}
	if scoreThreshold != nil {
		req.ScoreThreshold = scoreThreshold
	}

	resp, err := q.pointsSvc.Search(ctx, req)
	if err != nil {
		return nil, apperr.DependencyUnavailable(err, "search %s", phys)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, sp := range resp.Result {
		var id string
		if sp.Id != nil {
			if u := sp.Id.GetUuid(); u != "" {
				id = u
			} else {
				id = fmt.Sprintf("%d", sp.Id.GetNum())
			}
		}
		payload := make(map[string]string, len(sp.Payload))
		for k, v := range sp.Payload {
			payload[k] = v.GetStringValue()
		}
		matches = append(matches, Match{ID: id, Score: sp.Score, Payload: payload})
	}
	return matches, nil
}

func (q *QdrantVectorDB) Delete(ctx context.Context, collection string, ids []string, filters []Filter) error {
	phys := q.resolve(collection)

	if len(ids) > 0 {
		points := make([]*qdrant.PointId, len(ids))
		for i, id := range ids {
			points[i] = &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}}
		}
		_, err := q.pointsSvc.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: phys,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{Points: &qdrant.PointsIdsList{Ids: points}},
			},
		})
		if err != nil {
			return apperr.DependencyUnavailable(err, "delete %d points from %s", len(ids), phys)
		}
		return nil
	}

	if len(filters) == 0 {
		return apperr.Validation("delete requires ids or filters")
	}
	qfilter, err := buildFilter(filters)
	if err != nil {
		return err
	}
	_, err = q.pointsSvc.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: phys,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: qfilter},
		},
	})
	if err != nil {
		return apperr.DependencyUnavailable(err, "delete by filter from %s", phys)
	}
	return nil
}

// buildFilter translates structured Filters into a Qdrant Filter. Unknown
// Op values are a validation error rather than a silently dropped
// predicate, per spec.md §4.9.
func buildFilter(filters []Filter) (*qdrant.Filter, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	must := make([]*qdrant.Condition, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case FilterEq:
			must = append(must, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   f.Field,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: f.Value}},
					},
				},
			})
		case FilterAnyOf:
			must = append(must, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   f.Field,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: f.Values}}},
					},
				},
			})
		case FilterRange:
			rng := &qdrant.DatetimeRange{}
			if f.Gte != "" {
				rng.Gte = &f.Gte
			}
			if f.Lte != "" {
				rng.Lte = &f.Lte
			}
			must = append(must, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{Key: f.Field, DatetimeRange: rng},
				},
			})
		default:
			return nil, apperr.Validation("unsupported filter operator %q", f.Op)
		}
	}
	return &qdrant.Filter{Must: must}, nil
}
