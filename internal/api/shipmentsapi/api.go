package shipmentsapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fleetline/shiptrack/internal/services/shipments"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type API struct {
	svc *shipments.Service

	rl          RateLimiter
	rlPerMinute int64
}

func New(svc *shipments.Service) *API {
	return &API{svc: svc}
}

// WithRateLimiter enables per-client request limiting (requests per minute).
func (a *API) WithRateLimiter(rl RateLimiter, perMinute int64) *API {
	a.rl = rl
	a.rlPerMinute = perMinute
	return a
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if a.rl != nil && a.rlPerMinute > 0 {
		r.Use(a.rateLimit)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", a.listCustomers)
		r.Post("/", a.createCustomer)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getCustomer)
			r.Put("/", a.putCustomer)
			r.Patch("/", a.patchCustomer)
			r.Delete("/", a.deleteCustomer)
		})
	})

	r.Route("/shipments", func(r chi.Router) {
		r.Get("/", a.listShipments)
		r.Post("/", a.createShipment)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getShipment)
			r.Put("/", a.putShipment)
			r.Patch("/", a.patchShipment)
			r.Delete("/", a.deleteShipment)
			r.Get("/events", a.listShipmentEvents)
			r.Post("/events", a.appendShipmentEvent)
		})
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", a.listEvents)
		r.Post("/", a.createEvent)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getEvent)
			r.Put("/", a.putEvent)
			r.Patch("/", a.patchEvent)
			r.Delete("/", a.deleteEvent)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (a *API) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("rl:api:%s", r.RemoteAddr)
		ok, _, err := a.rl.Allow(r.Context(), key, a.rlPerMinute, time.Minute)
		if err != nil {
			// Limiter outage should not take the API down with it.
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"detail":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
