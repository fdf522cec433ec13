package routes

import (
	"net/http"

	"github.com/Dosada05/tundra-matches/handlers"
	"github.com/Dosada05/tundra-matches/middleware"
	"github.com/Dosada05/tundra-matches/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Health         http.HandlerFunc
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Health != nil {
		router.Get("/healthz", opts.Health)
	}

	// Подписка на события. Браузер не может передать заголовок Authorization
	// при открытии WebSocket, поэтому канал только на чтение и без токена.
	router.Get("/ws/matches/{matchID}", webSocketHandler.ServeMatch)
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeTournament)

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Route("/matches", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/schedule", matchHandler.ListProposals)
		r.Post("/schedule", matchHandler.ProposeTime)
		r.Patch("/schedule", matchHandler.RespondToTime)

		r.Post("/results", matchHandler.SubmitResult)
		r.Get("/roster", matchHandler.GetRoster)

		r.With(middleware.Authorize(models.RoleAdmin)).Patch("/admin", matchHandler.AdminUpdateMatch)

		r.Get("/{matchID}", matchHandler.GetMatch)
	})

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/matches", matchHandler.ListTournamentMatches)
		r.Get("/leaderboard", matchHandler.Leaderboard)
	})
}
