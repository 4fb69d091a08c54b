package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                   = 0
	CodeBadRequest           = 40000
	CodeUnsupportedFormat    = 40001
	CodeExtractionFailed     = 40002
	CodeNoExtractableContent = 40003
	CodeInvalidTag           = 40004
	CodeUnauthorized         = 40100
	CodeDocumentNotFound     = 40401
	CodeOriginalNotStored    = 40402
	CodeSummaryNotFound      = 40403
	CodeFileTooLarge         = 41300
	CodeInternalServer       = 50000
	CodeSearchUnavailable    = 50001
	CodeEmbeddingFailed      = 50201
	CodeEmbeddingUnavailable = 50301
	CodeQueueUnavailable     = 50302
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Accepted(c *gin.Context, data interface{}) {
	c.JSON(202, APIResponse{
		Code:    CodeOK,
		Message: "accepted",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
