package http

import (
	"github.com/gin-gonic/gin"

	"gopherai-kb/internal/bootstrap"
	"gopherai-kb/internal/transport/http/handler"
	"gopherai-kb/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = 32 << 20

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	maxUpload := int64(app.Config.Ingest.MaxUploadMB) << 20
	documentHandler := handler.NewDocumentHandler(app.Ingest, app.Documents, maxUpload)
	searchHandler := handler.NewSearchHandler(app.Search)
	summaryHandler := handler.NewSummaryHandler(app.Summary, app.Queue)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	documents := v1.Group("/documents")
	documents.POST("/upload", documentHandler.Upload)
	documents.POST("", documentHandler.Create)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.GET("/:id/file", documentHandler.Download)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.GET("/:id/tags", documentHandler.ListTags)
	documents.POST("/:id/tags", documentHandler.AddTag)
	documents.DELETE("/:id/tags/:tag", documentHandler.RemoveTag)

	v1.GET("/search", searchHandler.Search)
	v1.GET("/summary", summaryHandler.Get)
	v1.POST("/summary/regenerate", summaryHandler.Regenerate)

	return router
}
