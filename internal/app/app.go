package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/services/answer"
	"github.com/docuchat/docuchat/internal/services/classifier"
	"github.com/docuchat/docuchat/internal/services/embeddings"
	"github.com/docuchat/docuchat/internal/services/hyde"
	"github.com/docuchat/docuchat/internal/services/llm"
	"github.com/docuchat/docuchat/internal/services/memory"
	"github.com/docuchat/docuchat/internal/services/retrieval"
	"github.com/docuchat/docuchat/internal/services/vectorindex"
	badgerstore "github.com/docuchat/docuchat/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	BadgerDB      *badgerstore.BadgerDB
	MemoryStorage interfaces.MemoryStorage

	// Providers and gateways
	ProviderFactory  *llm.ProviderFactory
	EmbeddingService interfaces.EmbeddingService
	Classifier       interfaces.RelevanceScorer
	VectorIndex      interfaces.VectorIndex

	// Pipeline services
	MemoryService *memory.Service
	HydeExpander  *hyde.Expander
	Retriever     *retrieval.Retriever
	AnswerService interfaces.AnswerService
}

// New creates and wires the full application from configuration
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: config,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("storage_backend", config.Storage.Backend).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the memory record backend selected by
// configuration.
func (a *App) initStorage() error {
	switch a.Config.Storage.Backend {
	case "inmemory":
		a.MemoryStorage = memory.NewInMemoryStorage()
		a.Logger.Debug().Msg("Using in-memory record storage")
	default:
		db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
		if err != nil {
			return fmt.Errorf("failed to open badger database: %w", err)
		}
		a.BadgerDB = db
		a.MemoryStorage = badgerstore.NewMemoryStorage(db, a.Logger)
	}
	return nil
}

// initServices wires the pipeline from the outside in: providers first,
// then the gateways, then the orchestrator that consumes them.
func (a *App) initServices() error {
	factory, err := llm.NewProviderFactory(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create provider factory: %w", err)
	}
	a.ProviderFactory = factory

	a.EmbeddingService = embeddings.NewService(
		factory,
		a.Config.LLM.EmbedModel,
		a.Config.LLM.EmbedDimension,
		a.Logger,
	)

	// An empty classifier URL disables reranking; results keep their
	// similarity ordering.
	if a.Config.Classifier.URL != "" {
		timeout := 10 * time.Second
		if a.Config.Classifier.Timeout != "" {
			if parsed, err := time.ParseDuration(a.Config.Classifier.Timeout); err == nil && parsed > 0 {
				timeout = parsed
			} else {
				a.Logger.Warn().Str("timeout", a.Config.Classifier.Timeout).Msg("Invalid classifier timeout, using default")
			}
		}
		a.Classifier = classifier.NewClient(a.Config.Classifier.URL, timeout, a.Logger)
	}

	a.VectorIndex = vectorindex.NewQdrantIndex(&a.Config.Qdrant, a.Config.LLM.EmbedDimension, a.Logger)

	a.MemoryService = memory.NewService(a.MemoryStorage, &a.Config.Memory, a.Logger)
	if err := a.MemoryService.StartEviction(); err != nil {
		return fmt.Errorf("failed to start memory eviction: %w", err)
	}

	a.HydeExpander = hyde.NewExpander(factory, a.EmbeddingService, &a.Config.Retrieval, a.Logger)
	a.Retriever = retrieval.NewRetriever(a.VectorIndex, a.Classifier, &a.Config.Retrieval, a.Logger)

	a.AnswerService = answer.NewService(
		a.EmbeddingService,
		factory,
		a.HydeExpander,
		a.Retriever,
		a.VectorIndex,
		a.MemoryService,
		a.Config,
		a.Logger,
	)

	return nil
}

// Close shuts down components in reverse dependency order
func (a *App) Close() error {
	if a.MemoryService != nil {
		a.MemoryService.Stop()
	}
	if a.ProviderFactory != nil {
		a.ProviderFactory.Close()
	}
	if a.MemoryStorage != nil {
		if err := a.MemoryStorage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close memory storage")
		}
	}
	if a.BadgerDB != nil {
		if err := a.BadgerDB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close badger database")
			return err
		}
	}
	return nil
}
