package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"gopherai-kb/internal/ai"
	"gopherai-kb/internal/app"
	"gopherai-kb/internal/cache"
	"gopherai-kb/internal/config"
	"gopherai-kb/internal/platform/blobstore"
	"gopherai-kb/internal/platform/database"
	rabbitmqClient "gopherai-kb/internal/platform/rabbitmq"
	redisClient "gopherai-kb/internal/platform/redis"
	"gopherai-kb/internal/repository"
	"gopherai-kb/internal/worker"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Blobs  *blobstore.Bucket

	Queue            app.JobQueue
	Pool             *worker.Pool
	EnrichmentWorker *worker.EnrichmentWorker

	Embedder   *ai.Embedder
	Summarizer *ai.Summarizer

	Ingest     *app.IngestService
	Search     *app.SearchService
	Summary    *app.SummaryService
	Documents  *app.DocumentService
	Enrichment *app.EnrichmentService

	StartedAt time.Time
}

// New connects every configured dependency and builds the services.
// Redis and RabbitMQ are optional: an empty address disables the caches
// and runs background jobs on an in-process pool.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return err
	}

	if cfg.Redis.Addr != "" {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
	}

	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	tagRepo := repository.NewTagRepository(db)
	summaryRepo := repository.NewCorpusSummaryRepository(db)

	switch {
	case cfg.Storage.URL != "":
		a.Blobs, err = blobstore.Open(ctx, cfg.Storage.URL)
	case cfg.Storage.Dir != "":
		a.Blobs, err = blobstore.NewFileSystem(cfg.Storage.Dir)
	}
	if err != nil {
		return err
	}
	var blobs app.BlobStore
	if a.Blobs != nil {
		blobs = a.Blobs
	}

	llmClient := ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)
	embedClient := ai.NewOpenAICompatibleClient(time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second)
	a.Embedder = ai.NewEmbedder(embedClient, ai.EmbeddingConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	}, cfg.Embedding.BatchSize, cfg.Embedding.RequestsPerSecond)
	a.Summarizer = ai.NewSummarizer(llmClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if !a.Embedder.IsConfigured() {
		log.Printf("embedding provider not configured: uploads will be rejected and search is keyword only")
	}
	if !a.Summarizer.IsConfigured() {
		log.Printf("llm not configured: document and corpus summaries are skipped")
	}

	var summaryCache app.SummaryCache
	var queryCache app.QueryEmbeddingCache
	if a.Redis != nil {
		summaryCache = cache.NewSummaryCache(a.Redis, time.Duration(cfg.Redis.SummaryTTLSeconds)*time.Second)
		queryCache = cache.NewEmbeddingCache(a.Redis, a.Embedder.Model(), time.Duration(cfg.Redis.QueryEmbeddingTTLSeconds)*time.Second)
	}

	a.Summary = app.NewSummaryService(docRepo, chunkRepo, summaryRepo, summaryCache, a.Summarizer, app.SummaryOptions{
		ChunksPerDocument: cfg.Summary.ChunksPerDocument,
		MaxChunks:         cfg.Summary.MaxChunks,
	})
	a.Enrichment = app.NewEnrichmentService(docRepo, chunkRepo, tagRepo, a.Summarizer, a.Summary)

	if err := a.startQueue(ctx); err != nil {
		return err
	}

	a.Ingest = app.NewIngestService(docRepo, chunkRepo, blobs, a.Embedder, a.Queue, app.IngestOptions{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		MaxFileSize:  int64(cfg.Ingest.MaxUploadMB) << 20,
		EmbedRetries: cfg.Ingest.EmbedRetries,
		RetryBackoff: time.Duration(cfg.Ingest.RetryBackoffMS) * time.Millisecond,
		InsertBatch:  cfg.Ingest.InsertBatch,
	})
	a.Search = app.NewSearchService(docRepo, chunkRepo, tagRepo, a.Embedder, queryCache, app.SearchOptions{
		KeywordLimit:      cfg.Search.KeywordLimit,
		SemanticLimit:     cfg.Search.SemanticLimit,
		SemanticThreshold: float32(cfg.Search.SemanticThreshold),
		SemanticWeight:    float32(cfg.Search.SemanticWeight),
		SnippetWindow:     cfg.Search.SnippetWindow,
		SemanticTimeout:   time.Duration(cfg.Search.SemanticTimeoutMS) * time.Millisecond,
	})
	a.Documents = app.NewDocumentService(docRepo, chunkRepo, tagRepo, blobs, a.Queue)
	return nil
}

// startQueue publishes jobs to RabbitMQ when a URL is configured, else runs them in process.
func (a *App) startQueue(ctx context.Context) error {
	cfg := a.Config
	if cfg.RabbitMQ.URL == "" {
		a.Pool = worker.NewPool(a.Enrichment, cfg.Worker.Concurrency, cfg.Worker.QueueSize)
		if err := a.Pool.Start(ctx); err != nil {
			return fmt.Errorf("start worker pool failed: %w", err)
		}
		a.Queue = a.Pool
		return nil
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
	if err != nil {
		return err
	}
	a.MQConn = mqConn

	a.EnrichmentWorker = worker.NewEnrichmentWorker(mqConn, a.Enrichment, cfg.RabbitMQ.EnrichmentQueue, cfg.Worker.Concurrency)
	if err := a.EnrichmentWorker.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start enrichment worker failed: %w", err)
	}
	a.Queue = rabbitmqClient.NewJobPublisher(mqConn, cfg.RabbitMQ.EnrichmentQueue)
	return nil
}

// Close drains background work before closing connections.
func (a *App) Close() error {
	var closeErr error
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.EnrichmentWorker != nil {
		a.EnrichmentWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Blobs != nil {
		if err := a.Blobs.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
