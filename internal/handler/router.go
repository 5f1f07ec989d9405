package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	assistanthandler "github.com/zhouzirui/concierge/backend/internal/handler/assistant"
	cataloghandler "github.com/zhouzirui/concierge/backend/internal/handler/catalog"
	speechhandler "github.com/zhouzirui/concierge/backend/internal/handler/speech"
	"github.com/zhouzirui/concierge/backend/internal/handler/stream"
	"github.com/zhouzirui/concierge/backend/internal/model/catalog"
	assistantsvc "github.com/zhouzirui/concierge/backend/internal/service/assistant"
	"github.com/zhouzirui/concierge/backend/pkg/utils"
)

// Deps are the services the HTTP layer is wired to.
type Deps struct {
	Sessions       *assistantsvc.Manager
	Resolver       assistantsvc.Resolver
	Catalog        catalog.Store
	History        assistanthandler.History
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": deps.Sessions.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		assistanthandler.New(deps.Sessions, deps.Resolver, deps.History).RegisterRoutes(api)
		cataloghandler.New(deps.Catalog).RegisterRoutes(api)
		stream.New(deps.Sessions, 0).RegisterRoutes(api)
		speechhandler.New(deps.Sessions, originChecker(origins)).RegisterRoutes(api)
	})

	return r
}

// originChecker applies the CORS allow list to websocket upgrades as well.
func originChecker(origins []string) func(*http.Request) bool {
	if slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
