package ai

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

const defaultEmbeddingBatchSize = 64

// BatchError reports which provider batch failed. Completed holds the vectors of
// every input before Offset, so a caller can resume from there.
type BatchError struct {
	Batch     int
	Offset    int
	Size      int
	Completed [][]float32
	Retryable bool
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch %d (items %d-%d) failed: %v", e.Batch, e.Offset, e.Offset+e.Size-1, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Embedder splits embedding work into provider-sized batches. It never retries.
type Embedder struct {
	client    *OpenAICompatibleClient
	cfg       EmbeddingConfig
	batchSize int
	limiter   *rate.Limiter
}

// NewEmbedder builds an embedder. requestsPerSecond <= 0 disables throttling.
func NewEmbedder(client *OpenAICompatibleClient, cfg EmbeddingConfig, batchSize int, requestsPerSecond float64) *Embedder {
	if batchSize <= 0 {
		batchSize = defaultEmbeddingBatchSize
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Embedder{
		client:    client,
		cfg:       cfg,
		batchSize: batchSize,
		limiter:   limiter,
	}
}

func (e *Embedder) IsConfigured() bool {
	return e.cfg.IsConfigured()
}

func (e *Embedder) Model() string {
	return e.cfg.Model
}

// Embed returns one vector per text in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !e.IsConfigured() {
		return nil, &BatchError{
			Size: len(texts),
			Err:  fmt.Errorf("%w: %w", ErrEmbeddingProviderUnavailable, ErrNotConfigured),
		}
	}

	out := make([][]float32, 0, len(texts))
	for batch, offset := 0, 0; offset < len(texts); batch, offset = batch+1, offset+e.batchSize {
		end := min(offset+e.batchSize, len(texts))

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, e.batchError(batch, offset, end, out, fmt.Errorf("%w: %w", ErrEmbeddingProviderUnavailable, err))
			}
		}

		vectors, err := e.client.EmbedBatch(ctx, e.cfg, texts[offset:end])
		if err != nil {
			return nil, e.batchError(batch, offset, end, out, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) batchError(batch, offset, end int, completed [][]float32, err error) *BatchError {
	return &BatchError{
		Batch:     batch,
		Offset:    offset,
		Size:      end - offset,
		Completed: completed,
		Retryable: errors.Is(err, ErrEmbeddingProviderUnavailable) && !errors.Is(err, ErrNotConfigured),
		Err:       err,
	}
}
