package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/model"
)

type countingSummaryCache struct {
	summaries   map[string]*model.CorpusSummary
	invalidated int
}

func (c *countingSummaryCache) Get(_ context.Context, summaryType string) (*model.CorpusSummary, bool, error) {
	s, ok := c.summaries[summaryType]
	return s, ok, nil
}

func (c *countingSummaryCache) Set(_ context.Context, summary *model.CorpusSummary) error {
	c.summaries[summary.SummaryType] = summary
	return nil
}

func (c *countingSummaryCache) Invalidate(_ context.Context, summaryType string) error {
	delete(c.summaries, summaryType)
	c.invalidated++
	return nil
}

func TestRegenerateEmptyCorpusStoresPlaceholder(t *testing.T) {
	stores := newTestStores(t)
	summarizer := &fakeSummarizer{configured: true}
	svc := NewSummaryService(stores.docs, stores.chunks, stores.summaries, nil, summarizer, SummaryOptions{})

	summary, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, emptyCorpusSummary, summary.ExecutiveSummary)
	assert.Zero(t, summary.DocumentCount)
	assert.Zero(t, summarizer.calls)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, emptyCorpusSummary, got.ExecutiveSummary)
	assert.Empty(t, got.KeyInsights)
}

func TestRegenerateSamplesBoundedChunks(t *testing.T) {
	stores := newTestStores(t)
	for d := 0; d < 4; d++ {
		contents := make([]string, 5)
		for c := range contents {
			contents[c] = fmt.Sprintf("doc %d chunk %d", d, c)
		}
		stores.seed(t, fmt.Sprintf("doc-%d.txt", d), contents, nil)
	}

	summarizer := &fakeSummarizer{configured: true, corpus: &ai.CorpusInsight{
		ExecutiveSummary: "Four documents.",
		KeyThemes:        []string{"chunks"},
		ImportantDates:   []ai.DatedEvent{{Date: "2024-01-01", Description: "kickoff"}},
	}}
	cache := &countingSummaryCache{summaries: map[string]*model.CorpusSummary{}}
	svc := NewSummaryService(stores.docs, stores.chunks, stores.summaries, cache, summarizer, SummaryOptions{ChunksPerDocument: 3, MaxChunks: 7})

	summary, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.DocumentCount)
	assert.Equal(t, 7, summary.SampledChunks)
	assert.Equal(t, 1, cache.invalidated)

	require.Len(t, summarizer.excerpts, 7)
	assert.Equal(t, "doc-3.txt", summarizer.excerpts[0].DocumentName, "newest document first")
	assert.Equal(t, "doc 3 chunk 0", summarizer.excerpts[0].Content)
	assert.Equal(t, "doc 3 chunk 2", summarizer.excerpts[2].Content)
	assert.Equal(t, "doc-1.txt", summarizer.excerpts[6].DocumentName)
	assert.Equal(t, "doc 1 chunk 0", summarizer.excerpts[6].Content)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Four documents.", got.ExecutiveSummary)
	assert.Equal(t, []model.ImportantDate{{Date: "2024-01-01", Description: "kickoff"}}, []model.ImportantDate(got.ImportantDates))
	assert.Empty(t, got.ActionItems)
	assert.Contains(t, cache.summaries, model.SummaryTypeExecutive, "Get fills the cache")

	var rows int64
	require.NoError(t, stores.db.Model(&model.CorpusSummary{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestRegenerateSkipsWithoutLLM(t *testing.T) {
	stores := newTestStores(t)
	stores.seed(t, "a.txt", []string{"content"}, nil)
	svc := NewSummaryService(stores.docs, stores.chunks, stores.summaries, nil, &fakeSummarizer{}, SummaryOptions{})

	summary, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, summary)

	_, err = svc.Get(context.Background())
	assert.ErrorIs(t, err, ErrSummaryNotFound)
}

func TestRegenerateKeepsPreviousSummaryOnFailure(t *testing.T) {
	stores := newTestStores(t)
	svc := NewSummaryService(stores.docs, stores.chunks, stores.summaries, nil, &fakeSummarizer{configured: true}, SummaryOptions{})
	_, err := svc.Regenerate(context.Background())
	require.NoError(t, err)

	stores.seed(t, "a.txt", []string{"content"}, nil)
	failing := NewSummaryService(stores.docs, stores.chunks, stores.summaries, nil, &fakeSummarizer{configured: true, err: errors.New("llm timeout")}, SummaryOptions{})
	_, err = failing.Regenerate(context.Background())
	require.Error(t, err)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, emptyCorpusSummary, got.ExecutiveSummary)
}
