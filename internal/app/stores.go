package app

import (
	"context"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/model"
	"gopherai-kb/internal/worker"
)

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id uint) (*model.Document, error)
	List(ctx context.Context) ([]model.Document, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.Document, error)
	Count(ctx context.Context) (int64, error)
	UpdateSummary(ctx context.Context, id uint, summary string) error
	Delete(ctx context.Context, id uint) error
	DeleteCascade(ctx context.Context, id uint) error
}

type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []model.Chunk, batchSize int) error
	SearchKeyword(ctx context.Context, query string, limit int) ([]model.Chunk, error)
	ScanEmbeddings(ctx context.Context, batchSize int, fn func([]model.Chunk) error) error
	ListByIDs(ctx context.Context, ids []uint) ([]model.Chunk, error)
	ListLeading(ctx context.Context, documentID uint, limit int) ([]model.Chunk, error)
	CountByDocumentID(ctx context.Context, documentID uint) (int64, error)
}

type TagStore interface {
	Add(ctx context.Context, documentID uint, tags ...string) error
	Remove(ctx context.Context, documentID uint, tag string) error
	ListByDocumentID(ctx context.Context, documentID uint) ([]string, error)
	ListByDocumentIDs(ctx context.Context, documentIDs []uint) (map[uint][]string, error)
}

type SummaryStore interface {
	Get(ctx context.Context, summaryType string) (*model.CorpusSummary, error)
	Replace(ctx context.Context, summary *model.CorpusSummary) error
}

// BlobStore keeps original uploads. Put returns the storage path to record on the document.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// JobQueue accepts background work. Submit must not wait for the job to run.
type JobQueue interface {
	Submit(ctx context.Context, job worker.Job) error
}

type Embedder interface {
	IsConfigured() bool
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type QueryEmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool, error)
	Set(ctx context.Context, text string, vec []float32) error
}

type Summarizer interface {
	IsConfigured() bool
	SummarizeDocument(ctx context.Context, name string, excerpts []string) (*ai.DocumentInsight, error)
	SummarizeCorpus(ctx context.Context, documentCount int, excerpts []ai.Excerpt) (*ai.CorpusInsight, error)
}

type SummaryCache interface {
	Get(ctx context.Context, summaryType string) (*model.CorpusSummary, bool, error)
	Set(ctx context.Context, summary *model.CorpusSummary) error
	Invalidate(ctx context.Context, summaryType string) error
}
