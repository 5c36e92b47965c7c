// Package status serves a read-only JSON view of running watchers.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/admission-watch/internal/watch"
)

// Reporter reports the status of one watcher.
type Reporter interface {
	Status() watch.Status
}

// NewRouter builds the status routes: GET /health and GET /watchers.
func NewRouter(reporters []Reporter) http.Handler {
	started := time.Now().UTC()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"watchers": len(reporters),
			"started":  started.Format(time.RFC3339),
		})
	})

	r.Get("/watchers", func(w http.ResponseWriter, _ *http.Request) {
		out := make([]watch.Status, 0, len(reporters))
		for _, rep := range reporters {
			out = append(out, rep.Status())
		}
		writeJSON(w, http.StatusOK, out)
	})

	return r
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, reporters []Reporter) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(reporters),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("status: shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("status: starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "status: server listen")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
