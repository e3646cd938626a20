// Package httprouter serves the run's metrics while a download is in progress.
package httprouter

import (
	"log/slog"
	"net/http"
	"slices"

	"subgrab/internal/infrastructure/delivery/http/middleware"
	"subgrab/internal/observability"
)

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	metrics     *observability.Metrics
	globalChain []func(http.Handler) http.Handler
}

func New(log *slog.Logger, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	r.globalChain = append(r.globalChain, mw...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, mw := range slices.Backward(r.globalChain) {
		h = mw(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer(r.log),
		middleware.RequestID,
		middleware.Logger(r.log),
	)
}

func (r *Router) SetRoutes() {
	r.Handle("GET /metrics", r.metrics.Handler())
	r.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
