package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmbeddingProviderUnavailable = errors.New("embedding provider unavailable")
	ErrEmbeddingRequestFailed       = errors.New("embedding request failed")
	ErrNotConfigured                = errors.New("provider credentials not configured")
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func (c EmbeddingConfig) IsConfigured() bool {
	return c.BaseURL != "" && c.APIKey != "" && c.Model != ""
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds texts in a single provider call. The result has one vector per text,
// in input order, whatever order the provider answers in.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingProviderUnavailable, ErrNotConfigured)
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": texts,
	}

	var parsed embeddingResponse
	if err := c.postJSON(ctx, cfg.BaseURL, cfg.APIKey, "/embeddings", reqBody, &parsed); err != nil {
		return nil, classifyEmbeddingError(err)
	}

	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbeddingRequestFailed, len(parsed.Data), len(texts))
	}

	result := make([][]float32, len(texts))
	dims := -1
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(texts) || result[item.Index] != nil {
			return nil, fmt.Errorf("%w: invalid embedding index %d", ErrEmbeddingRequestFailed, item.Index)
		}
		if len(item.Embedding) == 0 || (dims >= 0 && len(item.Embedding) != dims) {
			return nil, fmt.Errorf("%w: inconsistent embedding dimensions", ErrEmbeddingRequestFailed)
		}
		dims = len(item.Embedding)
		result[item.Index] = item.Embedding
	}
	return result, nil
}

func classifyEmbeddingError(err error) error {
	var statusErr *StatusError
	switch {
	case errors.Is(err, errTransport), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrEmbeddingProviderUnavailable, err)
	case errors.As(err, &statusErr) && statusErr.Temporary():
		return fmt.Errorf("%w: %w", ErrEmbeddingProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrEmbeddingRequestFailed, err)
	}
}
