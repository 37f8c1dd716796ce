// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embeddings

import "strings"

// DefaultFactory returns a Manager.Factory that resolves a model name of
// the form "provider:model" (or a bare provider name, defaulting model to
// "") into a concrete Embedder via NewEmbedder, reporting its Dimension
// as ModelInfo. base supplies provider credentials/config shared across
// every resolved model (api_key, base_url); per-call model overrides the
// "model" key.
func DefaultFactory(base map[string]string) Factory {
	return func(modelName string) (Embedder, ModelInfo, error) {
		provider, model := splitModelName(modelName)

		config := make(map[string]string, len(base)+1)
		for k, v := range base {
			config[k] = v
		}
		if model != "" {
			config["model"] = model
		}

		embedder, err := NewEmbedder(provider, config)
		if err != nil {
			return nil, ModelInfo{}, err
		}
		return embedder, ModelInfo{
			Name:       modelName,
			Dimensions: embedder.Dimension(),
		}, nil
	}
}

// splitModelName splits "provider:model" into its parts; a name with no
// colon is treated as a bare provider with an empty model (the provider's
// own default).
func splitModelName(name string) (provider, model string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}
