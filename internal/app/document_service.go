package app

import (
	"context"
	"fmt"
	"log"

	"gopherai-kb/internal/model"
	"gopherai-kb/internal/worker"
)

// DocumentView is a document with the data the list and detail pages show.
type DocumentView struct {
	model.Document
	Tags       []string `json:"tags"`
	ChunkCount int64    `json:"chunk_count"`
}

type DocumentService struct {
	docs   DocumentStore
	chunks ChunkStore
	tags   TagStore
	blobs  BlobStore
	queue  JobQueue
}

func NewDocumentService(docs DocumentStore, chunks ChunkStore, tags TagStore, blobs BlobStore, queue JobQueue) *DocumentService {
	return &DocumentService{
		docs:   docs,
		chunks: chunks,
		tags:   tags,
		blobs:  blobs,
		queue:  queue,
	}
}

func (s *DocumentService) List(ctx context.Context) ([]DocumentView, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	ids := make([]uint, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	tags, err := s.tags.ListByDocumentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list tags failed: %w", err)
	}

	views := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		docTags := tags[d.ID]
		if docTags == nil {
			docTags = []string{}
		}
		views = append(views, DocumentView{Document: d, Tags: docTags})
	}
	return views, nil
}

func (s *DocumentService) Get(ctx context.Context, id uint) (*DocumentView, error) {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.ListByDocumentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list tags failed: %w", err)
	}
	count, err := s.chunks.CountByDocumentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count chunks failed: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return &DocumentView{Document: *doc, Tags: tags, ChunkCount: count}, nil
}

// Original returns the stored upload of a document.
func (s *DocumentService) Original(ctx context.Context, id uint) (*model.Document, []byte, error) {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.StoragePath == nil || s.blobs == nil {
		return nil, nil, ErrOriginalNotStored
	}
	data, err := s.blobs.Get(ctx, *doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrOriginalNotStored, err)
	}
	return doc, data, nil
}

// Delete removes a document with its chunks, tags and stored original, then queues a corpus summary.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.DeleteCascade(ctx, id); err != nil {
		return fmt.Errorf("%w: delete document %d: %w", ErrPersistenceFailed, id, err)
	}
	if doc.StoragePath != nil && s.blobs != nil {
		if err := s.blobs.Delete(ctx, *doc.StoragePath); err != nil {
			log.Printf("delete stored original %s failed: %v", *doc.StoragePath, err)
		}
	}
	if s.queue != nil {
		job := worker.NewJob(worker.KindSummarizeCorpus, 0)
		if err := s.queue.Submit(context.WithoutCancel(ctx), job); err != nil {
			log.Printf("enqueue %s job failed: %v", job.Kind, err)
		}
	}
	return nil
}

func (s *DocumentService) ListTags(ctx context.Context, id uint) ([]string, error) {
	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}
	tags, err := s.tags.ListByDocumentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list tags failed: %w", err)
	}
	return tags, nil
}

// AddTag adds tag to a document. Adding a tag the document already has is a no-op.
func (s *DocumentService) AddTag(ctx context.Context, id uint, tag string) ([]string, error) {
	tag = normalizeTag(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is empty", ErrInvalidInput)
	}
	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}
	if err := s.tags.Add(ctx, id, tag); err != nil {
		return nil, fmt.Errorf("add tag failed: %w", err)
	}
	return s.tags.ListByDocumentID(ctx, id)
}

func (s *DocumentService) RemoveTag(ctx context.Context, id uint, tag string) error {
	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	if err := s.tags.Remove(ctx, id, normalizeTag(tag)); err != nil {
		return fmt.Errorf("remove tag failed: %w", err)
	}
	return nil
}

func (s *DocumentService) mustGet(ctx context.Context, id uint) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document failed: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
	}
	return doc, nil
}
