package httpapi

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/metrics"
)

// Options configures NewRouter.
type Options struct {
	// Metrics enables /metrics and request metrics when set.
	Metrics *metrics.Metrics

	// Socket serves /socket.io/ when set.
	Socket http.Handler

	// StaticDir is served as a single page app when set.
	StaticDir string
}

// NewRouter wires h and the optional surfaces into one handler.
func NewRouter(h *Handler, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	// Socket.IO upgrades need the raw ResponseWriter, so it stays outside
	// the wrapping middleware.
	if opts.Socket != nil {
		r.Handle("/socket.io/", opts.Socket)
		r.Handle("/socket.io/*", opts.Socket)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequestLogger)
		if opts.Metrics != nil {
			r.Use(metrics.RequestMiddleware(opts.Metrics))
			r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler(nil))
		}

		r.Get("/health", h.Health)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/version", h.Version)
			r.Post("/push/{kind}", h.Push)
			r.Post("/request-everything", h.RequestEverything)
			r.Get("/players", h.ListPlayers)
			r.Get("/players/{id}", h.GetPlayer)
			r.Delete("/players/{id}", h.DeletePlayer)
			r.Get("/audio-components", h.ListAudioComponents)
			r.Get("/export", h.Export)
		})

		if opts.StaticDir != "" {
			log.Info().Str("dir", opts.StaticDir).Msg("Serving static files")
			r.NotFound(spaHandler(opts.StaticDir).ServeHTTP)
		}
	})

	return r
}

// spaHandler serves files from dir and falls back to index.html for paths
// that do not exist, so client-side routes resolve.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if r.URL.Path == "/" {
			path = index
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, index)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
