package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/koralov/raggate/internal/config"
	"github.com/koralov/raggate/internal/db"
	dbRedis "github.com/koralov/raggate/internal/db/redis"
	"github.com/koralov/raggate/internal/domain"
	logpkg "github.com/koralov/raggate/internal/logger"
	"github.com/koralov/raggate/internal/metrics"
	documentrepo "github.com/koralov/raggate/internal/repository/document"
	"github.com/koralov/raggate/internal/repository/embcache"
	"github.com/koralov/raggate/internal/repository/memory"
	searchrepo "github.com/koralov/raggate/internal/repository/search"
	chiTransport "github.com/koralov/raggate/internal/transport/chi"
	"github.com/koralov/raggate/internal/transport/mock"
	openaiTransport "github.com/koralov/raggate/internal/transport/openai"
	analyzeuc "github.com/koralov/raggate/internal/usecase/analyze"
	compareuc "github.com/koralov/raggate/internal/usecase/compare"
	healthuc "github.com/koralov/raggate/internal/usecase/health"
	ingestuc "github.com/koralov/raggate/internal/usecase/ingest"
	rerankuc "github.com/koralov/raggate/internal/usecase/rerank"
	searchuc "github.com/koralov/raggate/internal/usecase/search"
	summarizeuc "github.com/koralov/raggate/internal/usecase/summarize"
	"github.com/koralov/raggate/internal/version"
)

// collaborators is the set of external dependencies the pipeline runs
// against. Mock and real implementations satisfy the same interfaces;
// the choice is made exactly once, here.
type collaborators struct {
	searchRepo    searchuc.Repository
	docReader     searchuc.DocumentReader
	docWriter     ingestuc.DocumentWriter
	queryEmbedder searchuc.Embedder
	batchEmbedder ingestuc.Embedder
	generator     domain.Generator
	scorer        rerankuc.Scorer
	storePinger   healthuc.StorePinger
	modelChecker  healthuc.ModelChecker
	searchProber  healthuc.TextSearchProber
	seed          bool
	close         func()
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting raggate gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("mock", cfg.UseMock()),
	)

	sink := metrics.NewPromSink(prometheus.DefaultRegisterer)

	ctx := context.Background()

	var deps collaborators
	if cfg.UseMock() {
		deps = buildMock(&cfg)
		logger.Info("Running in mock mode, external services are not required")
	} else {
		deps, err = buildReal(ctx, &cfg, sink, logger)
		if err != nil {
			logger.Fatal("Failed to connect external services", zap.Error(err))
		}
	}
	if deps.close != nil {
		defer deps.close()
	}

	searchSvc := searchuc.New(
		deps.searchRepo, deps.docReader, deps.queryEmbedder,
		rerankuc.New(deps.scorer, cfg.Retrieval.RerankBlend),
		sink,
		searchuc.Config{
			RankConstant:  cfg.Retrieval.RankConstant,
			FusionWindow:  cfg.Retrieval.FusionWindow,
			CandidatePool: cfg.Retrieval.CandidatePool,
			ScoreCeiling:  cfg.Retrieval.ScoreCeiling,
		},
	)
	ingestSvc := ingestuc.New(deps.docWriter, deps.batchEmbedder)
	healthSvc := healthuc.New(deps.storePinger, deps.modelChecker, deps.searchProber)

	if deps.seed {
		seedCtx := logpkg.ContextWithLogger(ctx, logger)
		if err := ingestSvc.Seed(seedCtx); err != nil {
			logger.Warn("Seeding the sample corpus failed", zap.Error(err))
		} else {
			logger.Info("Seeded the sample corpus")
		}
	}

	server := chiTransport.NewServer(
		searchSvc,
		summarizeuc.New(deps.generator, summarizeuc.Config{
			MaxWords:             cfg.Summarize.MaxWords,
			TechnicalTemperature: cfg.Summarize.TemperatureLo,
			DefaultTemperature:   cfg.Summarize.TemperatureHi,
		}),
		compareuc.New(deps.generator),
		analyzeuc.New(deps.generator),
		ingestSvc,
		healthSvc,
		sink,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Use(chiMiddleware.Timeout(time.Duration(cfg.HTTP.RequestTimeoutSec) * time.Second))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildMock wires the in-memory store and the deterministic model.
func buildMock(cfg *config.Config) collaborators {
	store := memory.NewStore()
	model := mock.NewModel(cfg.Model.Dimensions)

	return collaborators{
		searchRepo:    store,
		docReader:     store,
		docWriter:     store,
		queryEmbedder: model,
		batchEmbedder: model,
		generator:     model,
		scorer:        model,
		storePinger:   store,
		modelChecker:  model,
		searchProber:  store,
		seed:          true,
	}
}

// buildReal wires Redis (RediSearch) and the OpenAI-compatible model
// provider, with the embedding cache on the query path.
func buildReal(
	ctx context.Context, cfg *config.Config, sink metrics.Sink, logger *zap.Logger,
) (collaborators, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Store.Addrs,
		Password: cfg.Store.Password,
	})
	if err != nil {
		return collaborators{}, fmt.Errorf("create store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return collaborators{}, fmt.Errorf("store not ready: %w", err)
	}

	if err := ensureIndex(ctx, store, cfg); err != nil {
		store.Close()
		return collaborators{}, err
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Model:      cfg.Model.EmbeddingModel,
		Dimensions: cfg.Model.Dimensions,
		Provider:   "openai",
		Sink:       sink,
		Logger:     logger,
	})
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:   cfg.Model.APIKey,
		BaseURL:  cfg.Model.BaseURL,
		Model:    cfg.Model.GenerationModel,
		Provider: "openai",
		Sink:     sink,
		Logger:   logger,
	})

	docRepo := documentrepo.New(store, cfg.Store.KeyPrefix)
	searchRepo := searchrepo.New(store, cfg.Store.Index, cfg.Store.KeyPrefix)

	return collaborators{
		searchRepo: searchRepo,
		docReader:  docRepo,
		docWriter:  docRepo,
		// Query texts repeat across requests; document ingestion is
		// new content and bypasses the cache via batch embedding. The
		// cache key carries the model and dimensions so a provider
		// change invalidates old entries instead of serving them.
		queryEmbedder: embcache.New(
			embedder, store, cfg.Store.KeyPrefix,
			fmt.Sprintf("%s@%d", cfg.Model.EmbeddingModel, cfg.Model.Dimensions),
			sink, logger,
		),
		batchEmbedder: embedder,
		generator:     generator,
		scorer:        openaiTransport.NewScorer(embedder),
		storePinger:   store,
		modelChecker:  embedder,
		searchProber:  searchRepo,
		close:         store.Close,
	}, nil
}

// ensureIndex creates the FT index when it does not exist yet.
func ensureIndex(ctx context.Context, store db.Store, cfg *config.Config) error {
	exists, err := store.IndexExists(ctx, cfg.Store.Index)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := documentrepo.Schema(
		cfg.Store.Index, cfg.Store.KeyPrefix,
		cfg.Model.Dimensions, cfg.Store.HNSWM, cfg.Store.HNSWEFConstruct,
	)
	if err := store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", cfg.Store.Index, err)
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
