package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/model"
)

const emptyCorpusSummary = "No documents have been uploaded yet."

type SummaryOptions struct {
	ChunksPerDocument int
	MaxChunks         int
}

// SummaryService maintains the single executive summary of the corpus.
type SummaryService struct {
	docs       DocumentStore
	chunks     ChunkStore
	store      SummaryStore
	cache      SummaryCache
	summarizer Summarizer
	opts       SummaryOptions
}

// NewSummaryService wires the summarizer. cache may be nil.
func NewSummaryService(
	docs DocumentStore,
	chunks ChunkStore,
	store SummaryStore,
	cache SummaryCache,
	summarizer Summarizer,
	opts SummaryOptions,
) *SummaryService {
	if opts.ChunksPerDocument <= 0 {
		opts.ChunksPerDocument = 3
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = 50
	}
	return &SummaryService{
		docs:       docs,
		chunks:     chunks,
		store:      store,
		cache:      cache,
		summarizer: summarizer,
		opts:       opts,
	}
}

func (s *SummaryService) Get(ctx context.Context) (*model.CorpusSummary, error) {
	if s.cache != nil {
		summary, ok, err := s.cache.Get(ctx, model.SummaryTypeExecutive)
		if err != nil {
			log.Printf("summary cache get failed: %v", err)
		} else if ok {
			return summary, nil
		}
	}

	summary, err := s.store.Get(ctx, model.SummaryTypeExecutive)
	if err != nil {
		return nil, fmt.Errorf("load corpus summary failed: %w", err)
	}
	if summary == nil {
		return nil, ErrSummaryNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			log.Printf("summary cache set failed: %v", err)
		}
	}
	return summary, nil
}

// Regenerate rebuilds the corpus summary from a bounded sample of chunks.
// It returns nil, nil when the LLM is not configured and the stored summary is left as is.
func (s *SummaryService) Regenerate(ctx context.Context) (*model.CorpusSummary, error) {
	count, err := s.docs.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents failed: %w", err)
	}

	if count == 0 {
		summary := &model.CorpusSummary{
			SummaryType:      model.SummaryTypeExecutive,
			ExecutiveSummary: emptyCorpusSummary,
			KeyInsights:      datatypes.JSONSlice[string]{},
			ActionItems:      datatypes.JSONSlice[string]{},
			KeyThemes:        datatypes.JSONSlice[string]{},
			ImportantDates:   datatypes.JSONSlice[model.ImportantDate]{},
			GeneratedAt:      time.Now(),
		}
		if err := s.save(ctx, summary); err != nil {
			return nil, err
		}
		return summary, nil
	}

	if s.summarizer == nil || !s.summarizer.IsConfigured() {
		log.Printf("corpus summary skipped: llm not configured")
		return nil, nil
	}

	excerpts, err := s.sample(ctx)
	if err != nil {
		return nil, err
	}

	insight, err := s.summarizer.SummarizeCorpus(ctx, int(count), excerpts)
	if err != nil {
		return nil, fmt.Errorf("summarize corpus failed: %w", err)
	}

	dates := make(datatypes.JSONSlice[model.ImportantDate], 0, len(insight.ImportantDates))
	for _, d := range insight.ImportantDates {
		dates = append(dates, model.ImportantDate{Date: d.Date, Description: d.Description})
	}
	summary := &model.CorpusSummary{
		SummaryType:      model.SummaryTypeExecutive,
		ExecutiveSummary: insight.ExecutiveSummary,
		KeyInsights:      nonNil(insight.KeyInsights),
		ActionItems:      nonNil(insight.ActionItems),
		KeyThemes:        nonNil(insight.KeyThemes),
		ImportantDates:   dates,
		DocumentCount:    int(count),
		SampledChunks:    len(excerpts),
		GeneratedAt:      time.Now(),
	}
	if err := s.save(ctx, summary); err != nil {
		return nil, err
	}
	log.Printf("corpus summary regenerated over %d documents from %d chunks", count, len(excerpts))
	return summary, nil
}

// sample takes the earliest chunks of each document, newest document first, until the cap.
func (s *SummaryService) sample(ctx context.Context) ([]ai.Excerpt, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}

	excerpts := make([]ai.Excerpt, 0, s.opts.MaxChunks)
	for _, doc := range docs {
		remaining := s.opts.MaxChunks - len(excerpts)
		if remaining <= 0 {
			break
		}
		chunks, err := s.chunks.ListLeading(ctx, doc.ID, min(s.opts.ChunksPerDocument, remaining))
		if err != nil {
			return nil, fmt.Errorf("load chunks of document %d failed: %w", doc.ID, err)
		}
		for _, c := range chunks {
			excerpts = append(excerpts, ai.Excerpt{
				DocumentName: doc.Name,
				PageNumber:   c.PageNumber,
				Content:      c.Content,
			})
		}
	}
	return excerpts, nil
}

func (s *SummaryService) save(ctx context.Context, summary *model.CorpusSummary) error {
	if err := s.store.Replace(ctx, summary); err != nil {
		return fmt.Errorf("%w: replace corpus summary: %w", ErrPersistenceFailed, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, summary.SummaryType); err != nil {
			log.Printf("summary cache invalidate failed: %v", err)
		}
	}
	return nil
}

func nonNil(items []string) datatypes.JSONSlice[string] {
	if items == nil {
		return datatypes.JSONSlice[string]{}
	}
	return items
}
