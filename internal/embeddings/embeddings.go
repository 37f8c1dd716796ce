// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package embeddings implements the Embedding Manager's provider
// dispatch (NewEmbedder) plus its three concrete Embedder backends
// (openai, ollama, mock); Manager (manager.go) is the stateful lazy
// loader/cache/switch-model layer built on top of the Embedder this
// file returns.
package embeddings

import (
	"context"
	"fmt"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedText generates an embedding vector for the given text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts (more efficient).
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimension of the embedding vectors.
	Dimension() int
}

// NewEmbedder constructs an Embedder for embedderType ("openai", "ollama",
// "mock"), reading provider-specific settings out of config.
func NewEmbedder(embedderType string, config map[string]string) (Embedder, error) {
	switch embedderType {
	case "openai":
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, apperr.Validation("openai api_key is required")
		}
		model := config["model"]
		if model == "" {
			model = "text-embedding-3-small" // default
		}
		return NewOpenAIEmbedder(apiKey, model)
	case "ollama":
		baseURL := config["base_url"]
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := config["model"]
		if model == "" {
			model = "nomic-embed-text" // default
		}
		return NewOllamaEmbedder(baseURL, model)
	case "mock":
		dim := 384 // default mock dimension
		if dimStr := config["dimension"]; dimStr != "" {
			fmt.Sscanf(dimStr, "%d", &dim)
		}
		return NewMockEmbedder(dim), nil
	default:
		return nil, apperr.Validation("unknown embedder type: %s", embedderType)
	}
}

