package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter returns the router behind StartPromServer: /metrics for
// gatherer, /health and the extra routes. A nil gatherer serves the default
// registry.
func NewRouter(gatherer prometheus.Gatherer, routes map[string]http.Handler) *mux.Router {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	r := mux.NewRouter()
	r.Handle("/metrics", handler).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	for pattern, h := range routes {
		r.Handle(pattern, h)
	}
	return r
}

// StartPromServer serves NewRouter on addr until ctx is cancelled. Handler
// panics are recovered and answered with a 500.
func StartPromServer(ctx context.Context, addr string, gatherer prometheus.Gatherer, routes map[string]http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers.RecoveryHandler()(NewRouter(gatherer, routes)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
