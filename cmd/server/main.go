package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	openai "github.com/sashabaranov/go-openai"

	"github.com/rs/zerolog"

	"github.com/smartbotly/smartbotly/internal/config"
	"github.com/smartbotly/smartbotly/internal/completion"
	"github.com/smartbotly/smartbotly/internal/handler"
	"github.com/smartbotly/smartbotly/internal/retrieval"
	"github.com/smartbotly/smartbotly/internal/usage"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.NewConfig(".env")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Metering backend: Postgres when configured, in-memory otherwise.
	var store usage.Store
	if cfg.DatabaseURL != "" {
		db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		pgStore, err := usage.NewPostgresStore(db)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare usage store")
		}
		store = pgStore
	} else {
		store = usage.NewMemoryStore(nil)
		logger.Warn().Msg("no DATABASE_URL set, metering keys in memory")
	}

	retriever := retrieval.NewKeywordRetriever(nil, 2)
	completer := completion.NewOpenAIStreamer(openai.NewClient(cfg.OpenAIAPIKey), cfg.ModelName)
	h := handler.NewHandler(retriever, completer, store, logger)

	r := chi.NewRouter()

	// The widget is embedded on customer pages, so cross-origin must work.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Post("/api/chat", h.Chat)
	r.Post("/api/validate-key", h.ValidateKey)
	r.Get("/healthz", h.Health)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("shutdown failed")
	}
	logger.Info().Msg("server exited")
}

// requestLogger logs one line per completed request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
