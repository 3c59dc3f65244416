package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	gameHandler "github.com/kwalter/dungeonloom/internal/handler/game"
	middlewarePkg "github.com/kwalter/dungeonloom/internal/middleware"
	gameService "github.com/kwalter/dungeonloom/internal/service/game"
	"github.com/kwalter/dungeonloom/pkg/utils"
)

// NewRouter wires HTTP routes to core services. audioDir is the directory
// the gateway persists narration artifacts into.
func NewRouter(gameSvc *gameService.Service, audioDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		gameHandler.New(gameSvc).RegisterRoutes(api)

		api.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	// Narration artifacts referenced by audioUrl in turn responses.
	r.Get("/audio/{filename}", func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
			utils.RespondError(w, http.StatusBadRequest, "invalid audio filename")
			return
		}
		http.ServeFile(w, r, filepath.Join(audioDir, filename))
	})

	return r
}
