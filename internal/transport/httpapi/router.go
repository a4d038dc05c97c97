// Package httpapi serves the REST API, metrics, health and the web client.
package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/edumarques81/animekun-backend/internal/domain/calendar"
	"github.com/edumarques81/animekun-backend/internal/domain/favorites"
	"github.com/edumarques81/animekun-backend/internal/domain/session"
	"github.com/edumarques81/animekun-backend/internal/infra/store"
)

const (
	// SessionHeader selects the REST view session. Requests without it
	// share the default session.
	SessionHeader = "X-Session-ID"

	// RequestIDHeader carries the id assigned to every request.
	RequestIDHeader = "X-Request-ID"
)

// Deps are the services the router exposes.
type Deps struct {
	Sessions  *session.Registry
	Favorites *favorites.Store
	Calendar  *calendar.Service

	// SocketIO is mounted at /socket.io/ when set. SocketClients reports
	// its connection count on /health.
	SocketIO      http.Handler
	SocketClients func() int

	// Cache is the response cache whose usage /health reports.
	Cache store.StatsReporter

	StaticDir      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	Now            func() time.Time
}

// Router is the HTTP entry point.
type Router struct {
	*mux.Router
	limiter *IPRateLimiter
}

// NewRouter builds the route table.
func NewRouter(d Deps) *Router {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{
		sessions:  d.Sessions,
		favorites: d.Favorites,
		calendar:  d.Calendar,
		clients:   d.SocketClients,
		cache:     d.Cache,
		now:       d.Now,
	}

	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.Use(requestIDMiddleware)

	if d.SocketIO != nil {
		r.PathPrefix("/socket.io/").Handler(d.SocketIO)
	}

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	cors := corsMiddleware(d.CORSOrigins)
	r.Handle("/health", cors(http.HandlerFunc(h.health))).Methods(http.MethodGet, http.MethodOptions)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.Use(cors)

	out := &Router{Router: r}
	if d.RateLimitRPS > 0 {
		burst := d.RateLimitBurst
		if burst <= 0 {
			burst = int(d.RateLimitRPS) + 1
		}
		out.limiter = NewIPRateLimiter(rate.Limit(d.RateLimitRPS), burst)
		api.Use(rateLimitMiddleware(out.limiter))
	}

	api.HandleFunc("/version", h.version).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/options", h.options).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/sections", h.sections).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/sections/{id}/more", h.loadMore).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/view", h.setView).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/search", h.search).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/filters", h.setFilters).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/period", h.setPeriod).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/favorites", h.listFavorites).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/favorites/{id}/toggle", h.toggleFavorite).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/calendar", h.weekCalendar).Methods(http.MethodGet, http.MethodOptions)

	// Serve static files if directory specified (SPA mode)
	if d.StaticDir != "" {
		log.Info().Str("dir", d.StaticDir).Msg("Serving static files")
		r.PathPrefix("/").Handler(spaHandler(d.StaticDir))
	}

	return out
}

// Close releases the rate limiter sweeper.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

// requestIDMiddleware tags the request and logs it at debug level.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)

		if log.Debug().Enabled() {
			log.Debug().
				Str("request_id", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}
	})
}

// spaHandler serves files from dir and falls back to index.html for
// client-side routes.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if r.URL.Path == "/" {
			http.ServeFile(w, r, index)
			return
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
