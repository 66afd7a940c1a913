package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ruanqin/chatcore/internal/ai"
	"github.com/ruanqin/chatcore/internal/api/handlers"
	mw "github.com/ruanqin/chatcore/internal/api/middleware"
	"github.com/ruanqin/chatcore/internal/community"
	"github.com/ruanqin/chatcore/internal/config"
	"github.com/ruanqin/chatcore/internal/domain"
	"github.com/ruanqin/chatcore/internal/service"
	"github.com/ruanqin/chatcore/internal/store"
	"go.uber.org/zap"
)

// App holds the router and the counters behind the metrics endpoint.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Store and cache
	ruleStore := store.NewRuleStore(db)
	ruleCache := service.NewRuleCache(ruleStore, config.RuleCacheTTL(), config.StoreTimeout(), logger)

	// External capabilities via provider factories. A failed initialization
	// leaves the stage unconfigured; the cascade skips over it at runtime.
	aiProvider := config.AIProvider()
	aiClient, err := ai.NewClient(aiProvider, config.AIAPIKey(), config.QwenAPIURL())
	if err != nil {
		logger.Warn("AI client initialization failed", zap.String("provider", aiProvider), zap.Error(err))
	} else {
		logger.Info("AI client initialized", zap.String("provider", aiProvider))
	}

	communityProvider := config.CommunityProvider()
	communityClient, err := community.NewClient(communityProvider, config.DiscordWebhookURL())
	if err != nil {
		logger.Warn("community client initialization failed", zap.String("provider", communityProvider), zap.Error(err))
	} else {
		logger.Info("community client initialized", zap.String("provider", communityProvider))
	}

	// Services
	matcher := service.NewMatcher(logger)
	expander := service.NewExpander()
	validator := service.NewValidator()

	stages := []service.Responder{
		service.NewRuleResponder(ruleCache, matcher, expander),
		service.NewAIResponder(aiClient, validator, config.AITimeout()),
		service.NewCommunityResponder(communityClient, config.CommunityTimeout()),
	}
	resolver := service.NewResolver(stages, config.MaxMessageLen(), logger)
	admin := service.NewRuleAdminService(ruleStore, ruleCache, config.StoreTimeout(), logger)

	// Handlers
	chatHandler := handlers.NewChatHandler(resolver, admin, aiClient, communityClient, aiProvider, communityProvider)
	ruleHandler := handlers.NewRuleHandler(admin)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/test-ai", chatHandler.TestAI)
	r.Get("/test-discord", chatHandler.TestCommunity)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/", chatHandler.Resolve)
			r.Get("/status", chatHandler.Status)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", ruleHandler.List)
			r.Post("/", ruleHandler.Create)
			r.Post("/import", ruleHandler.Import)
			r.Route("/{ruleID}", func(r chi.Router) {
				r.Patch("/", ruleHandler.Update)
				r.Delete("/", ruleHandler.Delete)
			})
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.RuleStore       = (*store.RuleStore)(nil)
	_ domain.AIClient        = (*ai.QwenClient)(nil)
	_ domain.AIClient        = (*ai.OpenAIClient)(nil)
	_ domain.AIClient        = (*ai.MockClient)(nil)
	_ domain.CommunityClient = (*community.WebhookClient)(nil)
	_ domain.CommunityClient = (*community.MockClient)(nil)
)
