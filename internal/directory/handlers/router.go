package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig collects what the router needs besides the service.
type RouterConfig struct {
	JWTSecret string
	// Dependencies are pinged by /readyz, keyed by the name reported.
	Dependencies map[string]Pinger
}

// NewRouter builds the HTTP surface: the /api routes, health probes and
// the Prometheus scrape endpoint.
func NewRouter(service DirectoryController, cfg RouterConfig, logger *zap.Logger) http.Handler {
	h := NewHandler(service, logger)

	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(accessLog(logger.Named("http")))
	router.Use(middleware.Recoverer)
	router.Use(bodyLimit(maxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	router.Get("/readyz", readiness(cfg.Dependencies))
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))

		r.Get("/designations", h.listDesignations)
		r.Get("/departments/{designation}", h.resolveDepartments)
		r.Get("/employment-types", h.listEmploymentTypes)

		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.createEmployee)
			r.Get("/", h.listEmployees)
			r.Route("/{employeeID}", func(r chi.Router) {
				r.Get("/", h.getEmployee)
				r.Put("/", h.updateEmployee)
				r.Patch("/", h.updateEmployee)
				r.Delete("/", h.deleteEmployee)
				r.Put("/permissions", h.updatePermissions)
				r.Get("/permissions", h.getPermissions)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Code: "not_found", Message: "route not found"}})
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{Code: "method_not_allowed", Message: "method not allowed"}})
	})
	return router
}

// accessLog writes one entry per request and records the request metrics.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.ObserveHTTP(r.Method, route, strconv.Itoa(status), elapsed)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// requestID keeps a caller-supplied X-Request-Id or assigns a uuid, and
// echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func readiness(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(deps))
		ready := true
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				status[name] = err.Error()
				ready = false
				continue
			}
			status[name] = "ok"
		}

		if !ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "dependencies": status})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "dependencies": status})
	}
}
