package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/infra/observability"
	"github.com/boddenberg/finance-core/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger is a dependency probed by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services served by the router.
type Services struct {
	Transactions *service.TransactionService
	Analytics    *service.AnalyticsService
	Battery      *service.BatteryService
	Calendar     *service.CalendarService

	// Store is probed by /healthz when set.
	Store Pinger
}

// Options tunes the HTTP surface.
type Options struct {
	// JWTSecret enables HS256 bearer auth on /v1 when non-empty.
	JWTSecret        string
	ListDefaultLimit int
	ListMaxLimit     int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if opts.ListDefaultLimit <= 0 {
		opts.ListDefaultLimit = 20
	}
	if opts.ListMaxLimit < opts.ListDefaultLimit {
		opts.ListMaxLimit = max(opts.ListDefaultLimit, 100)
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(requestMetrics(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Store))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(JWTAuthMiddleware([]byte(opts.JWTSecret), logger))
		}

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Use(invalidateOnWrite(svcs.Analytics))
			r.Get("/", listTransactionsHandler(svcs.Transactions, opts, logger))
			r.Post("/", createTransactionHandler(svcs.Transactions, logger))
			r.Get("/{id}", getTransactionHandler(svcs.Transactions, logger))
			r.Put("/{id}", updateTransactionHandler(svcs.Transactions, logger))
			r.Delete("/{id}", deleteTransactionHandler(svcs.Transactions, logger))
			r.Post("/{id}/calendar", syncTransactionHandler(svcs.Transactions, svcs.Calendar, logger))
		})

		// Categories & analytics
		r.Get("/categories", listCategoriesHandler())
		r.Get("/analytics/summary", summaryHandler(svcs.Analytics, logger))
		r.Get("/analytics/categories", categoryBreakdownHandler(svcs.Analytics, logger))
		r.Get("/analytics/compound-interest", compoundInterestHandler(svcs.Analytics, logger))

		// Reconciliation counters
		r.Get("/sync/stats", syncStatsHandler(metrics))

		// Device bridges
		r.Route("/device/battery", func(r chi.Router) {
			r.Get("/", batteryInfoHandler(svcs.Battery, logger))
			r.Post("/optimization", batteryOptimizationHandler(svcs.Battery, logger))
			r.Post("/monitoring", startMonitoringHandler(svcs.Battery))
			r.Delete("/monitoring", stopMonitoringHandler(svcs.Battery))
			r.Get("/events", batteryEventsHandler(svcs.Battery, logger))
		})
		r.Route("/calendar", func(r chi.Router) {
			r.Post("/access", calendarAccessHandler(svcs.Calendar, logger))
			r.Get("/events", listEventsHandler(svcs.Calendar, logger))
			r.Post("/events", createEventHandler(svcs.Calendar, logger))
			r.Delete("/events/{id}", deleteEventHandler(svcs.Calendar, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "finance-core", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			err := store.Ping(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "local-store", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overallStatus = s.Status
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func syncStatsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, metrics.SyncSnapshot())
	}
}

// invalidateOnWrite drops the analytics snapshot after a successful write.
func invalidateOnWrite(svc *service.AnalyticsService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || svc == nil {
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() < http.StatusBadRequest {
				svc.Invalidate()
			}
		})
	}
}

// requestMetrics counts responses by status class ("2xx", "4xx", ...).
func requestMetrics(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.IncrRequest(strconv.Itoa(status/100) + "xx")
		})
	}
}
