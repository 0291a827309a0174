package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/substrate/internal/api/handlers"
	mw "github.com/Harshitk-cp/substrate/internal/api/middleware"
	"github.com/Harshitk-cp/substrate/internal/buildconfig"
	"github.com/Harshitk-cp/substrate/internal/config"
	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/embedding"
	"github.com/Harshitk-cp/substrate/internal/service"
	"github.com/Harshitk-cp/substrate/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the router and the substrate service for lifecycle management.
type App struct {
	Router    *chi.Mux
	Service   *service.SubstrateService
	Registry  *prometheus.Registry
	startTime time.Time
}

// NewApp wires the HTTP surface around svc. db may be nil when the substrate
// runs without persistence.
func NewApp(svc *service.SubstrateService, db *pgxpool.Pool, logger *zap.Logger) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newSnapshotCollector(svc),
	)

	geoidHandler := handlers.NewGeoidHandler(svc)
	contradictionHandler := handlers.NewContradictionHandler(svc)
	scarHandler := handlers.NewScarHandler(svc)
	consensusHandler := handlers.NewConsensusHandler(svc)
	observeHandler := handlers.NewObserveHandler(svc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Service:   svc,
		Registry:  reg,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(reg)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", app.healthHandler(db))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		// Geoids
		r.Route("/geoids", func(r chi.Router) {
			r.Post("/", geoidHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", geoidHandler.GetByID)
				r.Get("/resonant", geoidHandler.Resonant)
				r.Get("/contradictory", geoidHandler.Contradictory)
				r.Get("/scars", geoidHandler.Scars)
				r.Post("/relations", geoidHandler.AddRelation)
			})
		})

		// Contradictions
		r.Route("/contradictions", func(r chi.Router) {
			r.Post("/", contradictionHandler.Inject)
			r.Get("/", contradictionHandler.ListActive)
			r.Post("/detect", contradictionHandler.Detect)
			r.Post("/amplify", contradictionHandler.Amplify)
			r.Post("/metabolize", contradictionHandler.Metabolize)
			r.Post("/conserve", contradictionHandler.Conserve)
			r.Get("/{id}", contradictionHandler.GetByID)
		})

		// Scars
		r.Route("/scars", func(r chi.Router) {
			r.Post("/", scarHandler.Create)
			r.Post("/decay", scarHandler.Decay)
			r.Post("/search", scarHandler.Search)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", scarHandler.GetByID)
				r.Post("/reactivate", scarHandler.Reactivate)
			})
		})

		r.Post("/consensus", consensusHandler.Generate)
		r.Post("/rules", consensusHandler.AddRule)

		// Observation
		r.Get("/snapshot", observeHandler.Snapshot)
		r.Get("/audit", observeHandler.Audit)
		r.Get("/field", observeHandler.Field)
		r.Post("/cycle", observeHandler.RunCycle)
	})

	return app
}

func (app *App) healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":         "ok",
			"build":          buildconfig.Get(),
			"uptime_seconds": time.Since(app.startTime).Seconds(),
			"persistence":    db != nil,
		}
		status := http.StatusOK

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				resp["status"] = "error"
				resp["error"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.GeoidStore         = (*store.GeoidStore)(nil)
	_ domain.ScarStore          = (*store.ScarStore)(nil)
	_ domain.ContradictionStore = (*store.ContradictionStore)(nil)
	_ domain.LedgerStore        = (*store.LedgerStore)(nil)
	_ domain.EmbeddingClient    = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient    = (*embedding.MockClient)(nil)
)
