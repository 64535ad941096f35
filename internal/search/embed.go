package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Embedder turns text into vectors for the search index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// EmbedConfig selects and configures an embedding backend.
type EmbedConfig struct {
	Provider  string `json:"provider"` // "api" or "local"
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

// NewEmbedder builds the configured backend; "local" targets an
// Ollama-compatible endpoint, everything else an OpenAI-compatible one.
func NewEmbedder(cfg EmbedConfig) Embedder {
	if cfg.Provider == "local" {
		return &localEmbedder{cfg: cfg}
	}
	return &apiEmbedder{cfg: cfg}
}

// apiEmbedder calls an OpenAI-compatible /embeddings endpoint with the
// whole batch in one request.
type apiEmbedder struct {
	cfg EmbedConfig

	once     sync.Once
	seenDims int
}

type apiEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type apiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *apiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(apiEmbedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result apiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}

	vectors := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		vectors[i] = d.Embedding
	}
	e.cacheDimension(vectors)
	return vectors, nil
}

func (e *apiEmbedder) Dimension() int {
	if e.seenDims > 0 {
		return e.seenDims
	}
	return e.cfg.Dimension
}

func (e *apiEmbedder) cacheDimension(vectors [][]float32) {
	if len(vectors) > 0 && len(vectors[0]) > 0 {
		e.once.Do(func() { e.seenDims = len(vectors[0]) })
	}
}

// localEmbedder calls an Ollama-compatible endpoint, one text per
// request.
type localEmbedder struct {
	cfg EmbedConfig

	once     sync.Once
	seenDims int
}

type localEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type localEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *localEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	if len(vectors) > 0 && len(vectors[0]) > 0 {
		e.once.Do(func() { e.seenDims = len(vectors[0]) })
	}
	return vectors, nil
}

func (e *localEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(localEmbedRequest{Model: e.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result localEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	return result.Embedding, nil
}

func (e *localEmbedder) Dimension() int {
	if e.seenDims > 0 {
		return e.seenDims
	}
	return e.cfg.Dimension
}
