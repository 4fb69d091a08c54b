package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job kinds handled by the background queue.
const (
	KindEnrichDocument  = "document.enrich"
	KindSummarizeCorpus = "corpus.summarize"
)

// Job is one unit of background enrichment work. It is JSON encoded on the wire.
type Job struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	DocumentID  uint      `json:"document_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func NewJob(kind string, documentID uint) Job {
	return Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		DocumentID:  documentID,
		SubmittedAt: time.Now(),
	}
}

type Handler interface {
	Handle(ctx context.Context, job Job) error
}

type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error {
	return f(ctx, job)
}
