// Package app assembles the services shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/config"
	"alfredoptarigan/voice-interview/internal/repositories"
	"alfredoptarigan/voice-interview/internal/services"
	"alfredoptarigan/voice-interview/internal/session"
)

var _ services.VectorStore = (*repositories.SQLiteEmbeddingStore)(nil)

type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Documents services.DocumentService
	Interview services.InterviewService
	Sessions  *session.Registry

	closers []func() error
}

// New connects every backend and wires the services. A missing model API
// key is reported as apperrors.ErrInitializationFailed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	apiKey, err := cfg.GeminiAPIKey()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInitializationFailed, "app.New", err)
	}

	a := &App{Config: cfg}

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	userRepo := repositories.NewUserRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	log.Info("✅ Repositories initialized successfully")

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		a.Close()
		return nil, err
	}

	geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:         apiKey,
		ChatModel:      cfg.Gemini.ChatModel,
		EmbeddingModel: cfg.Gemini.EmbeddingModel,
		SpeechModel:    cfg.Gemini.SpeechModel,
		HTTPClient:     services.NewHTTPClient(cfg.Gemini.Timeout, cfg.Gemini.MaxRetries),
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info("✅ Gemini AI initialized successfully")

	store, err := a.vectorStore(ctx, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	embeddingService := services.NewEmbeddingService(geminiService, store, cfg.Embedding.MaxInterviewRecords, log)
	audioService := services.NewAudioService(geminiService, geminiService, services.SpeechOptions{
		Voice: cfg.Audio.Voice,
		Speed: cfg.Audio.Speed,
	}, log)

	a.Documents = services.NewDocumentService(
		userRepo,
		docRepo,
		storageService,
		services.NewDocumentParserService(),
		services.NewCVAnalyzer(geminiService, log),
		embeddingService,
		log,
	)
	a.Interview = services.NewInterviewService(audioService, embeddingService, geminiService, log)
	a.Sessions = session.NewRegistry(a.Interview, a.Documents, cfg.Audio.PlaybackTimeout, log)
	log.Info("✅ Services initialized successfully")

	return a, nil
}

func (a *App) vectorStore(ctx context.Context, log *zap.Logger) (services.VectorStore, error) {
	cfg := a.Config

	switch cfg.Embedding.Backend {
	case "", "qdrant":
		qdrantService, err := services.NewQdrantService(
			cfg.Qdrant.URL,
			cfg.Qdrant.APIKey,
			cfg.Qdrant.Collection,
			cfg.Qdrant.VectorSize,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Qdrant: %w", err)
		}
		a.closers = append(a.closers, qdrantService.Close)

		if err := qdrantService.InitCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize Qdrant collection: %w", err)
		}
		log.Info("✅ Qdrant initialized successfully")
		return qdrantService, nil

	case "sqlite":
		store, err := repositories.NewSQLiteEmbeddingStore(ctx, cfg.Embedding.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite vector store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		log.Info("✅ SQLite vector store initialized", zap.String("path", cfg.Embedding.SQLitePath))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Embedding.Backend)
	}
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
