package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-kb/internal/app"
	"gopherai-kb/internal/transport/http/response"
)

type Searcher interface {
	Search(ctx context.Context, query string) (*app.SearchResponse, error)
}

type SearchHandler struct {
	search Searcher
}

func NewSearchHandler(search Searcher) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search answers GET /search?q=. Queries shorter than two characters return no results.
func (h *SearchHandler) Search(c *gin.Context) {
	query, ok := c.GetQuery("q")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing query parameter q")
		return
	}
	result, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		writeError(c, err, "search failed")
		return
	}
	response.OK(c, result)
}
