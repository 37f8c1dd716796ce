// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// HiveService implements the internal/proto chunk ingest/query gRPC
// service, kept from the teacher (which served the drone-client upload
// path over it) and retargeted to write/read the same "documents"
// vector collection the HTTP surface's search handlers use.
package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/frame"
	"github.com/mantisfury/arkham-core/internal/proto"
	"github.com/mantisfury/arkham-core/internal/vectordb"
)

const grpcCollection = "documents"

// HiveService is the gRPC-facing counterpart to the HTTP handlers: a
// thin adapter over the same Frame.
type HiveService struct {
	proto.UnimplementedHiveServer
	frame *frame.Frame
}

func NewHiveService(f *frame.Frame) *HiveService {
	return &HiveService{frame: f}
}

// Ingest upserts a single pre-embedded chunk into the vector store,
// the gRPC counterpart to the HTTP /api/ingest surface's file-based path.
func (s *HiveService) Ingest(ctx context.Context, chunk *proto.Chunk) (*proto.Status, error) {
	id := chunk.Id
	if id == "" {
		id = uuid.NewString()
	}
	payload := map[string]string{"document_id": chunk.DocumentId}
	for k, v := range chunk.Metadata {
		payload[k] = v
	}
	if err := s.frame.VectorDB.Upsert(ctx, grpcCollection, id, chunk.Vector, payload); err != nil {
		return &proto.Status{Success: false, Message: err.Error()}, nil
	}
	return &proto.Status{Success: true, ChunkId: id}, nil
}

// Query runs a vector search against the same collection, embedding
// the query text through the Frame's bound embedder when no
// pre-computed QueryVector is supplied.
func (s *HiveService) Query(ctx context.Context, search *proto.Search) (*proto.Result, error) {
	vector := search.QueryVector
	if len(vector) == 0 {
		var err error
		vector, err = s.frame.EmbeddingBound.EmbedText(ctx, search.Query)
		if err != nil {
			return nil, err
		}
	}
	topK := int(search.TopK)
	if topK <= 0 {
		topK = 10
	}

	matches, err := s.frame.VectorDB.Search(ctx, grpcCollection, vector, topK, nil, nil)
	if err != nil {
		return nil, err
	}

	result := &proto.Result{Matches: make([]*proto.Match, 0, len(matches))}
	for _, m := range matches {
		result.Matches = append(result.Matches, matchToProto(m))
	}
	return result, nil
}

func matchToProto(m vectordb.Match) *proto.Match {
	return &proto.Match{
		ChunkId:    m.ID,
		DocumentId: m.Payload["document_id"],
		Score:      m.Score,
		Metadata:   m.Payload,
	}
}
