package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-kb/internal/app"
	"gopherai-kb/internal/model"
	"gopherai-kb/internal/pkg/extract"
	"gopherai-kb/internal/transport/http/response"
)

type Ingester interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
}

type DocumentManager interface {
	List(ctx context.Context) ([]app.DocumentView, error)
	Get(ctx context.Context, id uint) (*app.DocumentView, error)
	Original(ctx context.Context, id uint) (*model.Document, []byte, error)
	Delete(ctx context.Context, id uint) error
	ListTags(ctx context.Context, id uint) ([]string, error)
	AddTag(ctx context.Context, id uint, tag string) ([]string, error)
	RemoveTag(ctx context.Context, id uint, tag string) error
}

type DocumentHandler struct {
	ingest        Ingester
	documents     DocumentManager
	maxUploadSize int64
}

type CreateDocumentRequest struct {
	Name    string `json:"name" binding:"max=256"`
	Content string `json:"content" binding:"required"`
}

type AddTagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

type UploadResponse struct {
	Results   []app.FileResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

func NewDocumentHandler(ingest Ingester, documents DocumentManager, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{
		ingest:        ingest,
		documents:     documents,
		maxUploadSize: maxUploadSize,
	}
}

// Upload accepts a multipart form with one or more "files" (or a single "file").
// It always answers 200 with one result per file.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	files := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["file"]))
	files = append(files, form.File["files"]...)
	files = append(files, form.File["file"]...)
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}

	resp := UploadResponse{Results: make([]app.FileResult, 0, len(files))}
	for _, file := range files {
		result := h.uploadOne(c.Request.Context(), file)
		if result.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, result)
	}
	response.OK(c, resp)
}

func (h *DocumentHandler) uploadOne(ctx context.Context, file *multipart.FileHeader) app.FileResult {
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		err := &app.IngestError{
			Stage: app.StageReceived,
			Err:   fmt.Errorf("%w: %d bytes exceeds %d", app.ErrFileTooLarge, file.Size, h.maxUploadSize),
		}
		return app.NewFileResult(file.Filename, nil, err)
	}

	f, err := file.Open()
	if err != nil {
		return app.NewFileResult(file.Filename, nil, fmt.Errorf("read upload failed: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return app.NewFileResult(file.Filename, nil, fmt.Errorf("read upload failed: %w", err))
	}

	res, err := h.ingest.Ingest(ctx, app.IngestInput{
		Name:     file.Filename,
		MimeType: file.Header.Get("Content-Type"),
		Data:     data,
	})
	return app.NewFileResult(file.Filename, res, err)
}

// Create ingests a JSON body as a plain text document.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), app.IngestInput{
		Name:     req.Name,
		MimeType: extract.MIMEText,
		Data:     []byte(req.Content),
	})
	if err != nil {
		writeError(c, err, "ingest failed")
		return
	}
	response.OK(c, res)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

// Download streams the original upload back with its recorded MIME type.
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, data, err := h.documents.Original(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "download document failed")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	c.Data(http.StatusOK, doc.MimeType, data)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func (h *DocumentHandler) ListTags(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	tags, err := h.documents.ListTags(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "list tags failed")
		return
	}
	if tags == nil {
		tags = []string{}
	}
	response.OK(c, gin.H{"document_id": id, "tags": tags})
}

func (h *DocumentHandler) AddTag(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	var req AddTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidTag, "invalid request payload")
		return
	}
	tags, err := h.documents.AddTag(c.Request.Context(), id, req.Tag)
	if err != nil {
		writeError(c, err, "add tag failed")
		return
	}
	response.OK(c, gin.H{"document_id": id, "tags": tags})
}

func (h *DocumentHandler) RemoveTag(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	if err := h.documents.RemoveTag(c.Request.Context(), id, c.Param("tag")); err != nil {
		writeError(c, err, "remove tag failed")
		return
	}
	response.OK(c, gin.H{"document_id": id, "removed_tag": c.Param("tag")})
}
