// Package main is the entrypoint for the docextract API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/cache"
	"github.com/docextract/docextract/internal/config"
	"github.com/docextract/docextract/internal/handler"
	"github.com/docextract/docextract/internal/llm"
	"github.com/docextract/docextract/internal/metrics"
	"github.com/docextract/docextract/internal/middleware"
	"github.com/docextract/docextract/internal/ocr"
	"github.com/docextract/docextract/internal/repository"
	"github.com/docextract/docextract/internal/server"
	"github.com/docextract/docextract/internal/service"
	"github.com/docextract/docextract/internal/validation"
)

// authMinDuration pads API key checks so failures and successes take
// similar time.
const authMinDuration = 25 * time.Millisecond

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	if cfg.OCRAPIKey == "" {
		logger.Warn("MISTRAL_API_KEY is not set; /markdown and /extract will fail upstream")
	}
	if cfg.LLMAPIKey == "" {
		logger.Warn("GROQ_API_KEY is not set; /extract will fail upstream")
	}

	recorder := metrics.NewPrometheus()

	mistral := ocr.NewMistralClient(ocr.MistralConfig{
		APIKey:  cfg.OCRAPIKey,
		BaseURL: cfg.OCRBaseURL,
		Model:   cfg.OCRModel,
		Timeout: cfg.OCRTimeout,
	}, &http.Client{Timeout: cfg.OCRTimeout}, logger)
	converter := ocr.NewConverter(mistral, recorder, logger)

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLMAPIKey,
		BaseURL:        cfg.LLMBaseURL,
		Model:          cfg.LLMModel,
		Timeout:        cfg.LLMTimeout,
		ResponseFormat: cfg.LLMResponseFormat,
	}, &http.Client{Timeout: cfg.LLMTimeout}, logger)
	extractor := llm.NewExtractor(llmClient, recorder, cfg.LLMValidateResponse, logger)

	keyEnv := auth.EnvTest
	if cfg.IsProduction() {
		keyEnv = auth.EnvLive
	}

	projectService := service.NewProjectService(repo, cacheClient, cfg.ProjectCacheTTL, recorder, logger)
	userService := service.NewUserService(repo, auth.NewDigester(cfg.APIKeyPepper), keyEnv, recorder, logger)

	var credits service.CreditStore
	if cfg.ExtractRequireAPIKey {
		credits = repo
	}
	extractionService := service.NewExtractionService(converter, extractor, projectService, credits, recorder, logger)

	validator := validation.MustNew()

	r := setupRouter(routerDeps{
		root:      handler.New(),
		health:    handler.NewHealthHandler(repo, cacheClient),
		documents: handler.NewDocumentHandler(extractionService, logger),
		projects:  handler.NewProjectHandler(projectService, validator, logger),
		users:     handler.NewUserHandler(userService, validator, logger),
		metrics:   recorder.Handler(),
		authn:     userService,
		limiter:   cacheClient,
	}, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"llm_model", cfg.LLMModel,
		"ocr_model", cfg.OCRModel,
		"credits_enabled", cfg.ExtractRequireAPIKey,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps carries everything the router mounts.
type routerDeps struct {
	root      *handler.Handler
	health    *handler.HealthHandler
	documents *handler.DocumentHandler
	projects  *handler.ProjectHandler
	users     *handler.UserHandler
	metrics   http.Handler
	authn     middleware.Authenticator
	limiter   middleware.IPLimiter
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	cors := middleware.DefaultCORSConfig()
	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		cors.AllowedOrigins = origins
	}

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(cors))

	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	if deps.metrics != nil {
		r.Handle("/metrics", deps.metrics)
	}
	r.Get("/", deps.root.Hello)

	requireKey := middleware.Auth(middleware.AuthConfig{
		Logger:        logger,
		Authenticator: deps.authn,
		MinDuration:   authMinDuration,
	})
	rateLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: deps.limiter,
		Enabled: cfg.RateLimitExtractEnabled,
		RPS:     cfg.RateLimitExtractRPS,
		Burst:   cfg.RateLimitExtractBurst,
	})

	// Provider-backed document endpoints.
	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(middleware.MaxBodySize(cfg.MaxUploadSize))
		if cfg.ExtractRequireAPIKey {
			r.Use(requireKey)
		}
		r.Post("/markdown", deps.documents.Markdown)
		r.Post("/extract", deps.documents.Extract)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

		r.Get("/projectID", deps.projects.Get)
		r.Post("/projectID", deps.projects.Create)
		r.Delete("/projectID/{project_id}", deps.projects.Delete)

		r.Route("/user", func(r chi.Router) {
			r.With(requireKey).Get("/", deps.users.Get)
			r.Post("/", deps.users.Create)
			r.With(requireKey).Post("/api-keys", deps.users.IssueAPIKey)
			r.With(requireKey).Get("/api-keys", deps.users.ListAPIKeys)
			r.Patch("/{user_id}", deps.users.Update)
			r.Delete("/{user_id}", deps.users.Delete)
		})
	})

	r.NotFound(deps.root.NotFound)
	r.MethodNotAllowed(deps.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
