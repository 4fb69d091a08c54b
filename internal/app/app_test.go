package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/model"
	"gopherai-kb/internal/platform/database"
	"gopherai-kb/internal/repository"
	"gopherai-kb/internal/worker"
)

type testStores struct {
	db        *gorm.DB
	docs      *repository.DocumentRepository
	chunks    *repository.ChunkRepository
	tags      *repository.TagRepository
	summaries *repository.CorpusSummaryRepository
}

func newTestStores(t *testing.T) *testStores {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(context.Background(), "sqlite", fmt.Sprintf("file:app_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testStores{
		db:        db,
		docs:      repository.NewDocumentRepository(db),
		chunks:    repository.NewChunkRepository(db),
		tags:      repository.NewTagRepository(db),
		summaries: repository.NewCorpusSummaryRepository(db),
	}
}

func (s *testStores) countRows(t *testing.T, table any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(table).Count(&n).Error)
	return n
}

// seed stores a document whose chunks carry the given contents and embeddings.
func (s *testStores) seed(t *testing.T, name string, contents []string, vectors [][]float32) *model.Document {
	t.Helper()
	ctx := context.Background()
	doc := &model.Document{Name: name, FileType: model.FileTypeText, MimeType: "text/plain", Size: 1}
	require.NoError(t, s.docs.Create(ctx, doc))
	chunks := make([]model.Chunk, len(contents))
	for i, content := range contents {
		page := i + 1
		chunks[i] = model.Chunk{DocumentID: doc.ID, Content: content, Position: i, PageNumber: &page}
		vec := []float32{0, 0, 1}
		if i < len(vectors) {
			vec = vectors[i]
		}
		chunks[i].SetEmbedding(vec)
	}
	require.NoError(t, s.chunks.CreateBatch(ctx, chunks, 10))
	return doc
}

// fakeEmbedder maps each text to vectorFor(text). Scripted errors are returned by the
// first calls to Embed, in order.
type fakeEmbedder struct {
	mu         sync.Mutex
	configured bool
	errs       []error
	calls      [][]string
	queryErr   error
	queries    int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{configured: true}
}

func vectorFor(text string) []float32 {
	lower := strings.ToLower(text)
	vec := []float32{0, 0, 0.05}
	if strings.Contains(lower, "cat") || strings.Contains(lower, "kitten") || strings.Contains(lower, "feline") {
		vec[0] = 1
	}
	if strings.Contains(lower, "dog") || strings.Contains(lower, "puppy") {
		vec[1] = 1
	}
	return vec
}

func (f *fakeEmbedder) IsConfigured() bool { return f.configured }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = vectorFor(text)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return vectorFor(text), nil
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []worker.Job
	err  error
}

func (q *recordingQueue) Submit(_ context.Context, job worker.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) kinds() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = j.Kind
	}
	return out
}

type memoryBlobStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
	seq    int
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *memoryBlobStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.seq++
	path := fmt.Sprintf("documents/%d-%s", m.seq, name)
	m.blobs[path] = append([]byte(nil), data...)
	return path, nil
}

func (m *memoryBlobStore) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

func (m *memoryBlobStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}

func (m *memoryBlobStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

type fakeSummarizer struct {
	configured bool
	document   *ai.DocumentInsight
	corpus     *ai.CorpusInsight
	err        error

	mu        sync.Mutex
	excerpts  []ai.Excerpt
	documents [][]string
	calls     int
}

func (f *fakeSummarizer) IsConfigured() bool { return f.configured }

func (f *fakeSummarizer) SummarizeDocument(_ context.Context, _ string, excerpts []string) (*ai.DocumentInsight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.documents = append(f.documents, excerpts)
	if f.err != nil {
		return nil, f.err
	}
	return f.document, nil
}

func (f *fakeSummarizer) SummarizeCorpus(_ context.Context, _ int, excerpts []ai.Excerpt) (*ai.CorpusInsight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.excerpts = excerpts
	if f.err != nil {
		return nil, f.err
	}
	return f.corpus, nil
}
