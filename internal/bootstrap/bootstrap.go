package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kirillkom/intellidocs/internal/config"
	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
	"github.com/kirillkom/intellidocs/internal/core/usecase"
	"github.com/kirillkom/intellidocs/internal/infrastructure/chunking"
	"github.com/kirillkom/intellidocs/internal/infrastructure/extractor"
	"github.com/kirillkom/intellidocs/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/intellidocs/internal/infrastructure/queue/nats"
	mongorepo "github.com/kirillkom/intellidocs/internal/infrastructure/repository/mongo"
	"github.com/kirillkom/intellidocs/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/intellidocs/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/intellidocs/internal/infrastructure/resilience"
	"github.com/kirillkom/intellidocs/internal/infrastructure/storage/gridfs"
	"github.com/kirillkom/intellidocs/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/intellidocs/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Executor *resilience.Executor

	IngestUC     *usecase.IngestDocumentUseCase
	ProcessUC    *usecase.ProcessDocumentUseCase
	DocumentsUC  *usecase.DocumentsUseCase
	CategoriesUC *usecase.CategoriesUseCase
	ChatUC       *usecase.ChatUseCase
	StatsUC      *usecase.StatsUseCase

	closers []func()
}

type Option func(*options)

type options struct {
	stateObserver resilience.StateObserver
}

// WithCircuitObserver reports breaker transitions of every outbound dependency.
func WithCircuitObserver(observer resilience.StateObserver) Option {
	return func(o *options) {
		o.stateObserver = observer
	}
}

type stores struct {
	documents  ports.DocumentRepository
	categories ports.CategoryRepository
	blobs      ports.ObjectStorage
	vectors    ports.VectorStore
	audit      ports.AuditLog
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	var execOpts []resilience.Option
	if o.stateObserver != nil {
		execOpts = append(execOpts, resilience.WithStateObserver(o.stateObserver))
	}
	app.Executor = resilience.NewExecutor(resilienceConfig(cfg), execOpts...)

	st, err := app.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		FeedbackSubject:    cfg.NATSFeedbackSubject,
		ResilienceExecutor: app.Executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.Queue = queue
	app.closers = append(app.closers, queue.Close)

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            cfg.OllamaTimeout,
		ResilienceExecutor: app.Executor,
	})
	analyzer := ollama.NewAnalyzer(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)
	answerer := ollama.NewAnswerer(ollamaClient)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.NewRouter(st.blobs, cfg.MaxUploadBytes)

	app.IngestUC = usecase.NewIngestDocumentUseCase(st.documents, st.categories, st.blobs, queue, cfg.AutoProcess)
	app.ProcessUC = usecase.NewProcessDocumentUseCase(st.documents, st.categories, textExtractor, analyzer, chunker, embedder, st.vectors)
	app.DocumentsUC = usecase.NewDocumentsUseCase(st.documents, st.categories, st.blobs, queue, queue, embedder, st.vectors, st.audit)
	app.CategoriesUC = usecase.NewCategoriesUseCase(st.categories, st.documents)
	app.ChatUC = usecase.NewChatUseCase(st.documents, st.categories, embedder, st.vectors, answerer, cfg.ChatTextLimit, cfg.ChatTopK)
	app.StatsUC = usecase.NewStatsUseCase(st.documents, st.categories)

	if err := app.seedCategories(ctx, cfg.CategorySeedFile); err != nil {
		return nil, err
	}

	ok = true
	return app, nil
}

// openStores wires the document store, blob store and vector index selected by
// STORE_DRIVER, BLOB_BACKEND and VECTOR_BACKEND. Mongo is dialled once and shared.
func (a *App) openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	var mongoDB *mongo.Database
	mongoHandle := func() (*mongo.Database, error) {
		if mongoDB != nil {
			return mongoDB, nil
		}
		client, db, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, func() {
			_ = client.Disconnect(context.Background())
		})
		if err := mongorepo.EnsureSchema(ctx, db, cfg.VectorDimensions); err != nil {
			return nil, fmt.Errorf("ensure mongo schema: %w", err)
		}
		mongoDB = db
		return db, nil
	}

	st := &stores{}
	switch cfg.StoreDriver {
	case "", "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeDB(db)
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		st.documents = postgres.NewDocumentRepository(db)
		st.categories = postgres.NewCategoryRepository(db)
		st.audit = postgres.NewAuditLog(db)
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closeDB(db)
		st.documents = sqlite.NewDocumentRepository(db)
		st.categories = sqlite.NewCategoryRepository(db)
		st.audit = sqlite.NewAuditLog(db)
	case "mongo":
		db, err := mongoHandle()
		if err != nil {
			return nil, err
		}
		st.documents = mongorepo.NewDocumentRepository(db)
		st.categories = mongorepo.NewCategoryRepository(db)
		st.audit = mongorepo.NewAuditLog(db)
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	switch cfg.BlobBackend {
	case "", "localfs":
		blobs, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		st.blobs = blobs
	case "gridfs":
		db, err := mongoHandle()
		if err != nil {
			return nil, err
		}
		blobs, err := gridfs.New(db)
		if err != nil {
			return nil, fmt.Errorf("init gridfs: %w", err)
		}
		st.blobs = blobs
	default:
		return nil, fmt.Errorf("unsupported BLOB_BACKEND %q", cfg.BlobBackend)
	}

	switch cfg.VectorBackend {
	case "", "qdrant":
		st.vectors = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	case "atlas":
		db, err := mongoHandle()
		if err != nil {
			return nil, err
		}
		st.vectors = mongorepo.NewVectorStore(db)
	default:
		return nil, fmt.Errorf("unsupported VECTOR_BACKEND %q", cfg.VectorBackend)
	}

	slog.Info("stores_configured",
		"store", cfg.StoreDriver,
		"blobs", cfg.BlobBackend,
		"vectors", cfg.VectorBackend,
	)
	return st, nil
}

func (a *App) closeDB(db *sql.DB) {
	a.closers = append(a.closers, func() {
		_ = db.Close()
	})
}

func (a *App) seedCategories(ctx context.Context, path string) error {
	seed, err := config.LoadCategorySeed(path)
	if err != nil {
		return err
	}
	if len(seed) == 0 {
		return nil
	}
	defaults := make([]domain.Category, 0, len(seed))
	for _, c := range seed {
		defaults = append(defaults, domain.Category{Name: c.Name, Description: c.Description})
	}
	added, err := a.CategoriesUC.Seed(ctx, defaults)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	slog.Info("categories_seeded", "file", path, "added", added, "total", len(defaults))
	return nil
}

// resilienceConfig applies the env overrides. Chat answers are interactive and run once.
func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.Retry.MaxAttempts = cfg.RetryMaxAttempts
	rc.Retry.InitialBackoff = cfg.RetryInitialBackoff
	rc.Retry.MaxBackoff = cfg.RetryMaxBackoff
	rc.Breaker.Enabled = cfg.BreakerEnabled
	rc.Breaker.OpenTimeout = cfg.BreakerOpenTimeout
	rc.Operations = map[string]resilience.Retry{
		"ollama.answer": resilience.NoRetry(),
	}
	return rc
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
