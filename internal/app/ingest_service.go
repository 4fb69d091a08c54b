package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/model"
	"gopherai-kb/internal/pkg/chunker"
	"gopherai-kb/internal/pkg/extract"
	"gopherai-kb/internal/worker"
)

// Stage is a step of the ingestion state machine.
type Stage string

const (
	StageReceived  Stage = "received"
	StageExtracted Stage = "extracted"
	StageChunked   Stage = "chunked"
	StageEmbedded  Stage = "embedded"
	StagePersisted Stage = "persisted"
	StageStored    Stage = "stored"
	StageRejected  Stage = "rejected"
)

var fileTypeByKind = map[extract.Kind]string{
	extract.KindPDF:         model.FileTypePDF,
	extract.KindSpreadsheet: model.FileTypeExcel,
	extract.KindCSV:         model.FileTypeCSV,
	extract.KindText:        model.FileTypeText,
	extract.KindWord:        model.FileTypeWord,
}

// IngestError reports the last stage a file reached before it was rejected.
type IngestError struct {
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest rejected after %s: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

type IngestOptions struct {
	ChunkSize    int
	ChunkOverlap int
	MaxFileSize  int64
	EmbedRetries int
	RetryBackoff time.Duration
	InsertBatch  int
}

type IngestService struct {
	docs     DocumentStore
	chunks   ChunkStore
	blobs    BlobStore
	embedder Embedder
	queue    JobQueue
	chunker  *chunker.Chunker
	opts     IngestOptions
}

// NewIngestService builds the pipeline. blobs may be nil to skip storing originals.
func NewIngestService(
	docs DocumentStore,
	chunks ChunkStore,
	blobs BlobStore,
	embedder Embedder,
	queue JobQueue,
	opts IngestOptions,
) *IngestService {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.InsertBatch <= 0 {
		opts.InsertBatch = 100
	}
	return &IngestService{
		docs:     docs,
		chunks:   chunks,
		blobs:    blobs,
		embedder: embedder,
		queue:    queue,
		chunker:  chunker.New(chunker.WithSize(opts.ChunkSize), chunker.WithOverlap(opts.ChunkOverlap)),
		opts:     opts,
	}
}

type IngestInput struct {
	Name     string
	MimeType string
	Data     []byte
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
	Stage      Stage          `json:"stage"`
}

// FileResult is the outcome of one file in a batch upload.
type FileResult struct {
	Name       string          `json:"name"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Stage      Stage           `json:"stage"`
	Document   *model.Document `json:"document,omitempty"`
	ChunkCount int             `json:"chunk_count,omitempty"`
}

// IngestBatch ingests every file independently; one failure never affects the others.
func (s *IngestService) IngestBatch(ctx context.Context, inputs []IngestInput) []FileResult {
	results := make([]FileResult, 0, len(inputs))
	for _, input := range inputs {
		res, err := s.Ingest(ctx, input)
		results = append(results, NewFileResult(input.Name, res, err))
	}
	return results
}

// NewFileResult reports the outcome of ingesting one named file.
func NewFileResult(name string, res *IngestResult, err error) FileResult {
	if err != nil {
		return FileResult{
			Name:  name,
			Error: err.Error(),
			Stage: StageRejected,
		}
	}
	doc := res.Document
	return FileResult{
		Name:       name,
		Success:    true,
		Stage:      res.Stage,
		Document:   &doc,
		ChunkCount: res.ChunkCount,
	}
}

// Ingest extracts, chunks, embeds and persists one file, then queues its enrichment.
// Nothing is left behind when it returns an error.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Untitled"
	}
	if s.opts.MaxFileSize > 0 && int64(len(input.Data)) > s.opts.MaxFileSize {
		return nil, s.reject(name, StageReceived, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(input.Data), s.opts.MaxFileSize))
	}

	mimeType := extract.ResolveMIME(input.MimeType, input.Data, name)
	kind, ok := extract.KindOf(mimeType)
	if !ok {
		return nil, s.reject(name, StageReceived, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, mimeType))
	}

	extracted, err := extract.Extract(input.Data, mimeType)
	if err != nil {
		return nil, s.reject(name, StageReceived, err)
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return nil, s.reject(name, StageExtracted, ErrNoExtractableContent)
	}

	pieces := s.chunker.Split(extracted.Text, extracted.PageOffsets)
	if len(pieces) == 0 {
		return nil, s.reject(name, StageChunked, ErrNoExtractableContent)
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}
	vectors, err := s.embedAll(ctx, name, texts)
	if err != nil {
		return nil, s.reject(name, StageChunked, err)
	}

	doc := &model.Document{
		Name:      name,
		FileType:  fileTypeByKind[kind],
		MimeType:  mimeType,
		Size:      int64(len(input.Data)),
		PageCount: extracted.PageCount,
	}
	doc.StoragePath = s.storeOriginal(ctx, name, mimeType, input.Data)

	if err := s.docs.Create(ctx, doc); err != nil {
		s.discardOriginal(ctx, doc.StoragePath)
		return nil, s.reject(name, StageEmbedded, fmt.Errorf("%w: %w", ErrPersistenceFailed, err))
	}

	rows := make([]model.Chunk, len(pieces))
	for i, p := range pieces {
		rows[i] = model.Chunk{
			DocumentID: doc.ID,
			Content:    p.Content,
			PageNumber: p.PageNumber,
			Position:   p.Position,
		}
		rows[i].SetEmbedding(vectors[i])
	}
	if err := s.chunks.CreateBatch(ctx, rows, s.opts.InsertBatch); err != nil {
		// compensate: the document must not outlive a failed chunk insert
		if delErr := s.docs.DeleteCascade(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			log.Printf("ingest %q: compensating delete of document %d failed: %v", name, doc.ID, delErr)
		}
		s.discardOriginal(ctx, doc.StoragePath)
		return nil, s.reject(name, StageEmbedded, fmt.Errorf("%w: %w", ErrPersistenceFailed, err))
	}

	s.enqueue(ctx, worker.NewJob(worker.KindEnrichDocument, doc.ID))
	s.enqueue(ctx, worker.NewJob(worker.KindSummarizeCorpus, 0))

	log.Printf("ingest %q stored as document %d with %d chunks", name, doc.ID, len(rows))
	return &IngestResult{
		Document:   *doc,
		ChunkCount: len(rows),
		Stage:      StageStored,
	}, nil
}

// embedAll embeds texts, resuming from the failed batch on retryable errors.
func (s *IngestService) embedAll(ctx context.Context, name string, texts []string) ([][]float32, error) {
	done := make([][]float32, 0, len(texts))
	remaining := texts
	for attempt := 0; ; attempt++ {
		vectors, err := s.embedder.Embed(ctx, remaining)
		if err == nil {
			done = append(done, vectors...)
			break
		}

		var batchErr *ai.BatchError
		if !errors.As(err, &batchErr) || !batchErr.Retryable || attempt >= s.opts.EmbedRetries {
			return nil, err
		}
		done = append(done, batchErr.Completed...)
		remaining = remaining[batchErr.Offset:]

		delay := s.opts.RetryBackoff << attempt
		log.Printf("ingest %q: embedding batch %d failed, retrying %d remaining in %s: %v",
			name, batchErr.Batch, len(remaining), delay, batchErr.Err)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %w", ai.ErrEmbeddingProviderUnavailable, err)
		}
	}

	if len(done) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", ai.ErrEmbeddingRequestFailed, len(done), len(texts))
	}
	return done, nil
}

func (s *IngestService) storeOriginal(ctx context.Context, name, mimeType string, data []byte) *string {
	if s.blobs == nil {
		return nil
	}
	path, err := s.blobs.Put(ctx, name, data, mimeType)
	if err != nil {
		log.Printf("ingest %q: %v: %v", name, ErrStorageUploadFailed, err)
		return nil
	}
	return &path
}

func (s *IngestService) discardOriginal(ctx context.Context, path *string) {
	if s.blobs == nil || path == nil {
		return
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), *path); err != nil {
		log.Printf("ingest: delete stored original %s failed: %v", *path, err)
	}
}

func (s *IngestService) enqueue(ctx context.Context, job worker.Job) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Submit(context.WithoutCancel(ctx), job); err != nil {
		log.Printf("enqueue %s job for document %d failed: %v", job.Kind, job.DocumentID, err)
	}
}

func (s *IngestService) reject(name string, stage Stage, err error) error {
	log.Printf("ingest %q rejected after %s: %v", name, stage, err)
	return &IngestError{Stage: stage, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
