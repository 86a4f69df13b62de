package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/frannie30/ip-add-identifier/internal/identity"
)

// Options configures the HTTP boundary.
type Options struct {
	// RequestTimeout bounds every request's context. Zero disables it.
	RequestTimeout time.Duration
	// Local supplies the /api/local_info payload.
	Local LocalFunc
	// Providers lists the configured provider names for /api/status.
	Providers []string
	// Backend names the entry store for /api/status.
	Backend string
}

func New(port string, svc *identity.Service, opt Options) *http.Server {
	handlers := NewHandlers(svc, opt)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Routes(handlers, opt.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server listening on http://localhost:%s", port)
	return srv
}

// Routes builds the API mux wrapped in the logging middleware.
func Routes(h *Handlers, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ip_info", h.HandleIPInfo)
	mux.HandleFunc("GET /api/local_info", h.HandleLocalInfo)
	mux.HandleFunc("POST /api/save_entry", h.HandleSaveEntry)
	mux.HandleFunc("GET /api/saved_entries", h.HandleListEntries)
	mux.HandleFunc("GET /api/saved_entries/{id}", h.HandleGetEntry)
	mux.HandleFunc("DELETE /api/saved_entries/{id}", h.HandleDeleteEntry)
	mux.HandleFunc("GET /api/status", h.HandleStatus)

	var handler http.Handler = mux
	if requestTimeout > 0 {
		handler = withTimeout(handler, requestTimeout)
	}
	return withRequestLog(handler)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %s -> %d (%s)", id, r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func withTimeout(next http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
