package app

import (
	"context"
	"fmt"

	"gopherai-kb/internal/pkg/chunker"
	"gopherai-kb/internal/worker"
)

const (
	enrichChunks = 5
	enrichChars  = 8000
)

// EnrichmentService runs the background jobs queued after ingestion and deletion.
// It implements worker.Handler.
type EnrichmentService struct {
	docs       DocumentStore
	chunks     ChunkStore
	tags       TagStore
	summarizer Summarizer
	summaries  *SummaryService
}

func NewEnrichmentService(
	docs DocumentStore,
	chunks ChunkStore,
	tags TagStore,
	summarizer Summarizer,
	summaries *SummaryService,
) *EnrichmentService {
	return &EnrichmentService{
		docs:       docs,
		chunks:     chunks,
		tags:       tags,
		summarizer: summarizer,
		summaries:  summaries,
	}
}

func (s *EnrichmentService) Handle(ctx context.Context, job worker.Job) error {
	switch job.Kind {
	case worker.KindEnrichDocument:
		return s.EnrichDocument(ctx, job.DocumentID)
	case worker.KindSummarizeCorpus:
		_, err := s.summaries.Regenerate(ctx)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Kind)
	}
}

// EnrichDocument attaches an AI summary and suggested tags to a document.
// It does nothing when the LLM is not configured or the document is gone.
func (s *EnrichmentService) EnrichDocument(ctx context.Context, documentID uint) error {
	if s.summarizer == nil || !s.summarizer.IsConfigured() {
		return nil
	}

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %d failed: %w", documentID, err)
	}
	if doc == nil {
		return nil
	}

	chunks, err := s.chunks.ListLeading(ctx, documentID, enrichChunks)
	if err != nil {
		return fmt.Errorf("load chunks of document %d failed: %w", documentID, err)
	}
	excerpts := make([]string, 0, len(chunks))
	budget := enrichChars
	for _, c := range chunks {
		content := c.Content[:chunker.RuneStart(c.Content, budget)]
		if content != "" {
			excerpts = append(excerpts, content)
		}
		if len(content) < len(c.Content) {
			break
		}
		budget -= len(content)
	}
	if len(excerpts) == 0 {
		return nil
	}

	insight, err := s.summarizer.SummarizeDocument(ctx, doc.Name, excerpts)
	if err != nil {
		return fmt.Errorf("summarize document %d failed: %w", documentID, err)
	}

	if insight.Summary != "" {
		if err := s.docs.UpdateSummary(ctx, documentID, insight.Summary); err != nil {
			return fmt.Errorf("save summary of document %d failed: %w", documentID, err)
		}
	}
	if tags := normalizeTags(insight.SuggestedTags, maxSuggestedTag); len(tags) > 0 {
		if err := s.tags.Add(ctx, documentID, tags...); err != nil {
			return fmt.Errorf("save tags of document %d failed: %w", documentID, err)
		}
	}
	return nil
}
