package handler

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nekotachi/cyber-idol/backend/internal/config"
	characterHandler "github.com/nekotachi/cyber-idol/backend/internal/handler/character"
	"github.com/nekotachi/cyber-idol/backend/internal/handler/ws"
	middlewarePkg "github.com/nekotachi/cyber-idol/backend/internal/middleware"
	characterModel "github.com/nekotachi/cyber-idol/backend/internal/model/character"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(presets characterModel.Store, wsHandler *ws.Handler, audioCfg config.AudioConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	charHandler := characterHandler.New(presets, audioCfg.StaticDir)
	charHandler.RegisterRoutes(r)

	wsHandler.RegisterRoutes(r)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join(audioCfg.StaticDir, "index.html"))
	})

	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/x-icon")
		w.WriteHeader(http.StatusOK)
	})

	fileServer := http.FileServer(http.Dir(audioCfg.StaticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	return r
}
