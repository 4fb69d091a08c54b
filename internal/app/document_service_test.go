package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/model"
	"gopherai-kb/internal/worker"
)

func TestDocumentServiceDeleteCascades(t *testing.T) {
	stores := newTestStores(t)
	blobs := newMemoryBlobStore()
	queue := &recordingQueue{}
	ctx := context.Background()

	doc := stores.seed(t, "a.txt", []string{"one", "two"}, nil)
	path, err := blobs.Put(ctx, "a.txt", []byte("one two"), "text/plain")
	require.NoError(t, err)
	require.NoError(t, stores.db.Model(doc).Update("storage_path", path).Error)
	require.NoError(t, stores.tags.Add(ctx, doc.ID, "keep"))
	other := stores.seed(t, "b.txt", []string{"three"}, nil)

	svc := NewDocumentService(stores.docs, stores.chunks, stores.tags, blobs, queue)
	require.NoError(t, svc.Delete(ctx, doc.ID))

	_, err = svc.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Equal(t, int64(1), stores.countRows(t, &model.Chunk{}))
	assert.Zero(t, stores.countRows(t, &model.Tag{}))
	assert.Zero(t, blobs.len())
	assert.Equal(t, []string{worker.KindSummarizeCorpus}, queue.kinds())

	view, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.ChunkCount)

	assert.ErrorIs(t, svc.Delete(ctx, doc.ID), ErrDocumentNotFound)
}

func TestDocumentServiceTags(t *testing.T) {
	stores := newTestStores(t)
	svc := NewDocumentService(stores.docs, stores.chunks, stores.tags, nil, nil)
	ctx := context.Background()
	doc := stores.seed(t, "a.txt", []string{"one"}, nil)

	tags, err := svc.AddTag(ctx, doc.ID, "  Finance ")
	require.NoError(t, err)
	assert.Equal(t, []string{"finance"}, tags)

	tags, err = svc.AddTag(ctx, doc.ID, "#FINANCE")
	require.NoError(t, err, "adding an existing tag is a no-op")
	assert.Equal(t, []string{"finance"}, tags)

	_, err = svc.AddTag(ctx, doc.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AddTag(ctx, 9999, "x")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, svc.RemoveTag(ctx, doc.ID, "Finance"))
	tags, err = svc.ListTags(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []string{}, views[0].Tags)
}

func TestDocumentServiceOriginal(t *testing.T) {
	stores := newTestStores(t)
	blobs := newMemoryBlobStore()
	svc := NewDocumentService(stores.docs, stores.chunks, stores.tags, blobs, nil)
	ctx := context.Background()

	doc := stores.seed(t, "a.txt", []string{"one"}, nil)
	_, _, err := svc.Original(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrOriginalNotStored)

	path, err := blobs.Put(ctx, "a.txt", []byte("raw bytes"), "text/plain")
	require.NoError(t, err)
	require.NoError(t, stores.db.Model(doc).Update("storage_path", path).Error)

	got, data, err := svc.Original(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)
	assert.Equal(t, []byte("raw bytes"), data)
}

func TestEnrichDocumentAttachesSummaryAndTags(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := stores.seed(t, "q3.txt", []string{"Revenue grew", "Hiring slowed"}, nil)

	suggested := []string{"Finance", "#Q3", "finance", " ", strings.Repeat("x", 80), "a", "b", "c", "d", "e", "f"}
	summarizer := &fakeSummarizer{configured: true, document: &ai.DocumentInsight{Summary: "Q3 in brief.", SuggestedTags: suggested}}
	summaries := NewSummaryService(stores.docs, stores.chunks, stores.summaries, nil, summarizer, SummaryOptions{})
	svc := NewEnrichmentService(stores.docs, stores.chunks, stores.tags, summarizer, summaries)

	require.NoError(t, svc.Handle(ctx, worker.NewJob(worker.KindEnrichDocument, doc.ID)))

	got, err := stores.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "Q3 in brief.", *got.Summary)

	tags, err := stores.tags.ListByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, tags, maxSuggestedTag)
	assert.Contains(t, tags, "finance")
	assert.Contains(t, tags, "q3")
	assert.Contains(t, tags, strings.Repeat("x", maxTagRunes))
}

func TestEnrichDocumentTruncatesExcerptsOnRuneBoundary(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	head := strings.Repeat("a", enrichChars-1)
	doc := stores.seed(t, "long.txt", []string{head + "étail", "second chunk"}, nil)

	summarizer := &fakeSummarizer{configured: true, document: &ai.DocumentInsight{Summary: "x"}}
	svc := NewEnrichmentService(stores.docs, stores.chunks, stores.tags, summarizer, nil)
	require.NoError(t, svc.EnrichDocument(ctx, doc.ID))

	require.Len(t, summarizer.documents, 1)
	assert.Equal(t, []string{head}, summarizer.documents[0], "the split rune and later chunks are left out")
}

func TestEnrichDocumentSkips(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := stores.seed(t, "a.txt", []string{"text"}, nil)

	unconfigured := &fakeSummarizer{}
	svc := NewEnrichmentService(stores.docs, stores.chunks, stores.tags, unconfigured, nil)
	require.NoError(t, svc.EnrichDocument(ctx, doc.ID))
	assert.Zero(t, unconfigured.calls)

	configured := &fakeSummarizer{configured: true, document: &ai.DocumentInsight{Summary: "x"}}
	svc = NewEnrichmentService(stores.docs, stores.chunks, stores.tags, configured, nil)
	require.NoError(t, svc.EnrichDocument(ctx, 9999), "deleted documents are ignored")
	assert.Zero(t, configured.calls)
}

func TestEnrichmentHandleRoutesJobs(t *testing.T) {
	stores := newTestStores(t)
	summaries := NewSummaryService(stores.docs, stores.chunks, stores.summaries, nil, &fakeSummarizer{}, SummaryOptions{})
	svc := NewEnrichmentService(stores.docs, stores.chunks, stores.tags, &fakeSummarizer{}, summaries)

	require.NoError(t, svc.Handle(context.Background(), worker.NewJob(worker.KindSummarizeCorpus, 0)))
	got, err := summaries.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, emptyCorpusSummary, got.ExecutiveSummary)

	err = svc.Handle(context.Background(), worker.Job{Kind: "document.reindex"})
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, "machine learning", normalizeTag("  #Machine   Learning "))
	assert.Equal(t, "", normalizeTag("###"))
	assert.Equal(t, []string{"a", "b"}, normalizeTags([]string{"A", "a", "", "B", "c"}, 2))
}
