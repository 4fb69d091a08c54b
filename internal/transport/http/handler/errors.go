package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/app"
	"gopherai-kb/internal/pkg/extract"
	"gopherai-kb/internal/transport/http/response"
)

// writeError maps service errors to a status and response code.
// Unknown errors are logged and answered with fallback.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, extract.ErrUnsupportedFormat):
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
	case errors.Is(err, extract.ErrExtractionFailed):
		response.Error(c, http.StatusBadRequest, response.CodeExtractionFailed, err.Error())
	case errors.Is(err, app.ErrNoExtractableContent):
		response.Error(c, http.StatusBadRequest, response.CodeNoExtractableContent, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrOriginalNotStored):
		response.Error(c, http.StatusNotFound, response.CodeOriginalNotStored, app.ErrOriginalNotStored.Error())
	case errors.Is(err, app.ErrSummaryNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSummaryNotFound, err.Error())
	case errors.Is(err, ai.ErrEmbeddingProviderUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeEmbeddingUnavailable, ai.ErrEmbeddingProviderUnavailable.Error())
	case errors.Is(err, ai.ErrEmbeddingRequestFailed):
		response.Error(c, http.StatusBadGateway, response.CodeEmbeddingFailed, ai.ErrEmbeddingRequestFailed.Error())
	case errors.Is(err, app.ErrSearchUnavailable):
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusInternalServerError, response.CodeSearchUnavailable, app.ErrSearchUnavailable.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}

// documentID reads the :id path parameter, answering 400 when it is not a positive integer.
func documentID(c *gin.Context) (uint, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}
