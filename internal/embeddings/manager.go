// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Manager implements the Embedding Manager (spec.md §4.8): lazy model
// loading, batch embedding with an LRU cache keyed on (text, model), and
// the switch_model contract that keeps every vector collection's
// dimension coherent with the active model. Ported from
// original_source's embedder.py (functools.lru_cache + lazy _load_model),
// generalized to Go's explicit construction and the multi-collection
// vectordb this module implements.
package embeddings

import (
	"context"
	"sync"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/bus"
	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/vectordb"
)

// ModelInfo records the active model's shape, per spec.md §4.8's
// "(model_name, dimensions d, max_length, device)".
type ModelInfo struct {
	Name       string
	Dimensions int
	MaxLength  int
	Device     string
}

// Factory constructs an Embedder plus its ModelInfo for a named model.
// Implementations resolve "openai:text-embedding-3-small",
// "ollama:nomic-embed-text", etc. through NewEmbedder.
type Factory func(modelName string) (Embedder, ModelInfo, error)

// SwitchResult is the outcome of a switch_model call.
type SwitchResult struct {
	RequiresWipe        bool
	CollectionsWiped    bool
	AffectedCollections []string
}

// Manager is the Embedding Manager: a lazily-loaded Embedder with an LRU
// cache, coordinated model switching, and vector-store dimension
// coherence.
type Manager struct {
	mu      sync.Mutex
	factory Factory

	loaded  bool
	current Embedder
	info    ModelInfo

	cacheSize int
	cache     *lruCache

	vdb         vectordb.VectorDB
	bus         *bus.Bus
	collections []string // logical collection names whose dimension tracks the active model
}

func NewManager(factory Factory, cacheSize int, vdb vectordb.VectorDB, b *bus.Bus, collections []string) *Manager {
	return &Manager{
		factory:     factory,
		cacheSize:   cacheSize,
		cache:       newLRUCache(cacheSize),
		vdb:         vdb,
		bus:         b,
		collections: collections,
	}
}

// ensureLoaded lazy-loads modelName on first use. Call with mu held.
func (m *Manager) ensureLoaded(modelName string) error {
	if m.loaded {
		return nil
	}
	embedder, info, err := m.factory(modelName)
	if err != nil {
		return apperr.DependencyUnavailable(err, "load embedding model %s", modelName)
	}
	m.current = embedder
	m.info = info
	m.loaded = true
	logger.Printf("embeddings: loaded model %s (dim=%d device=%s)", info.Name, info.Dimensions, info.Device)
	return nil
}

// EmbedBatch embeds texts in input order, serving cache hits and
// delegating misses to the active Embedder's native batching.
func (m *Manager) EmbedBatch(ctx context.Context, defaultModel string, texts []string, batchSize int) ([][]float32, error) {
	m.mu.Lock()
	if err := m.ensureLoaded(defaultModel); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	model := m.info.Name
	cache := m.cache
	embedder := m.current
	m.mu.Unlock()

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if v, ok := cache.get(cacheKey(t, model)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	if batchSize <= 0 {
		batchSize = len(missTexts)
	}
	for start := 0; start < len(missTexts); start += batchSize {
		end := start + batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		vecs, err := embedder.EmbedBatch(ctx, missTexts[start:end])
		if err != nil {
			return nil, apperr.Transient(err, "embed batch [%d:%d]", start, end)
		}
		for j, v := range vecs {
			idx := missIdx[start+j]
			out[idx] = v
			m.mu.Lock()
			m.cache.put(cacheKey(missTexts[start+j], model), v)
			m.mu.Unlock()
		}
	}

	return out, nil
}

// Bound fixes a Manager to one default model, satisfying the narrower
// single-text/single-model Embedder contracts internal/search and
// internal/contradiction each declare against their own interfaces.
type Bound struct {
	Manager      *Manager
	DefaultModel string
}

func (b Bound) EmbedText(ctx context.Context, text string) ([]float32, error) {
	out, err := b.Manager.EmbedBatch(ctx, b.DefaultModel, []string{text}, 1)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (b Bound) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return b.Manager.EmbedBatch(ctx, b.DefaultModel, texts, len(texts))
}

// Info reports the active model's recorded shape, loading the default
// model first if nothing has embedded yet.
func (m *Manager) Info(defaultModel string) (ModelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(defaultModel); err != nil {
		return ModelInfo{}, err
	}
	return m.info, nil
}

// SwitchModel implements spec.md §4.8's switch_model contract.
func (m *Manager) SwitchModel(ctx context.Context, newModel string, confirmWipe bool) (*SwitchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newEmbedder, newInfo, err := m.factory(newModel)
	if err != nil {
		return nil, apperr.DependencyUnavailable(err, "resolve model %s", newModel)
	}

	sameDim := m.loaded && m.info.Dimensions == newInfo.Dimensions

	if sameDim {
		m.current = newEmbedder
		m.info = newInfo
		m.loaded = true
		m.cache.clear()
		return &SwitchResult{RequiresWipe: false, CollectionsWiped: false}, nil
	}

	affected, err := m.affectedCollections(ctx)
	if err != nil {
		return nil, err
	}

	if !confirmWipe {
		return &SwitchResult{RequiresWipe: true, AffectedCollections: affected}, nil
	}

	for _, name := range affected {
		if err := m.vdb.DeleteCollection(ctx, name); err != nil {
			return nil, err
		}
		if err := m.vdb.CreateCollection(ctx, name, newInfo.Dimensions, vectordb.MetricCosine); err != nil {
			return nil, err
		}
	}

	m.current = newEmbedder
	m.info = newInfo
	m.loaded = true
	m.cache.clear()

	if m.bus != nil {
		_ = m.bus.Emit(ctx, "embed.model.switched", map[string]interface{}{
			"model":                newInfo.Name,
			"dimensions":           newInfo.Dimensions,
			"collections_wiped":    affected,
		}, "embeddings")
	}

	return &SwitchResult{RequiresWipe: false, CollectionsWiped: true, AffectedCollections: affected}, nil
}

// affectedCollections reports which tracked collections are non-empty,
// i.e. would lose data on a dimension-changing wipe.
func (m *Manager) affectedCollections(ctx context.Context) ([]string, error) {
	if m.vdb == nil {
		return nil, nil
	}
	all, err := m.vdb.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	tracked := make(map[string]bool, len(m.collections))
	for _, c := range m.collections {
		tracked[c] = true
	}
	var affected []string
	for _, c := range all {
		if tracked[c.Name] && c.Count > 0 {
			affected = append(affected, c.Name)
		}
	}
	return affected, nil
}

func cacheKey(text, model string) string {
	return model + "\x00" + text
}
