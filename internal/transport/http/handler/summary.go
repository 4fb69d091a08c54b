package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-kb/internal/app"
	"gopherai-kb/internal/model"
	"gopherai-kb/internal/transport/http/response"
	"gopherai-kb/internal/worker"
)

type SummaryReader interface {
	Get(ctx context.Context) (*model.CorpusSummary, error)
}

type SummaryHandler struct {
	summaries SummaryReader
	queue     app.JobQueue
}

func NewSummaryHandler(summaries SummaryReader, queue app.JobQueue) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, queue: queue}
}

func (h *SummaryHandler) Get(c *gin.Context) {
	summary, err := h.summaries.Get(c.Request.Context())
	if err != nil {
		writeError(c, err, "get summary failed")
		return
	}
	response.OK(c, summary)
}

// Regenerate queues a corpus summary job and returns without waiting for it.
func (h *SummaryHandler) Regenerate(c *gin.Context) {
	job := worker.NewJob(worker.KindSummarizeCorpus, 0)
	if err := h.queue.Submit(c.Request.Context(), job); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			response.Error(c, http.StatusServiceUnavailable, response.CodeQueueUnavailable, err.Error())
			return
		}
		writeError(c, err, "queue summary regeneration failed")
		return
	}
	response.Accepted(c, gin.H{"job_id": job.ID, "kind": job.Kind})
}
