package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	avatarHandler "github.com/personarena/backend/internal/handler/avatar"
	debateHandler "github.com/personarena/backend/internal/handler/debate"
	profileHandler "github.com/personarena/backend/internal/handler/profile"
	wsHandler "github.com/personarena/backend/internal/handler/ws"
	middlewarePkg "github.com/personarena/backend/internal/middleware"
	"github.com/personarena/backend/internal/realtime"
	aiService "github.com/personarena/backend/internal/service/ai"
	"github.com/personarena/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the broadcast hub and the completion
// relay. aiSvc may be nil when no completion credential is configured;
// the relay endpoints then answer 503 while the broadcast endpoint
// keeps working.
func NewRouter(hub *realtime.Hub, aiSvc *aiService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		wsHandler.New(hub).RegisterRoutes(api)

		if aiSvc != nil {
			debateHandler.New(aiSvc).RegisterRoutes(api)
			profileHandler.New(aiSvc).RegisterRoutes(api)
			avatarHandler.New(aiSvc).RegisterRoutes(api)
		} else {
			unavailable := func(w http.ResponseWriter, r *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "completion gateway unavailable")
			}
			api.Post("/debate", unavailable)
			api.Post("/persona/profile", unavailable)
			api.Post("/avatar", unavailable)
		}

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
