package routes

import (
	"net/http"

	"github.com/Dosada05/debate-tournament/handlers"
	"github.com/Dosada05/debate-tournament/middleware"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/debate-tournament/docs"
)

type Options struct {
	JWTSecret         []byte
	WebhookSecretHash string
	AllowedOrigins    []string
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	webhookHandler *handlers.WebhookHandler,
	webSocketHandler *handlers.WebSocketHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.WebhookSecretHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Get("/healthz", healthHandler.Healthz)
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/matches", tournamentHandler.ListMatchesHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{tournamentID}/participants", tournamentHandler.RegisterHandler)

			// Управление турниром: организатор или админ
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin))

				r.Post("/", tournamentHandler.CreateHandler)
				r.Post("/{tournamentID}/start", tournamentHandler.StartHandler)
				r.Post("/{tournamentID}/reseed", tournamentHandler.ReseedHandler)
				r.Post("/{tournamentID}/rounds/{roundNumber}/advance", tournamentHandler.AdvanceRoundHandler)
			})
		})
	})

	router.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.RequireWebhookSecret(opts.WebhookSecretHash))
		r.Post("/debates/resolved", webhookHandler.DebateResolvedHandler)
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/tournaments/{tournamentID}", webSocketHandler.ServeTournament)
		r.With(authenticate).Get("/me", webSocketHandler.ServeUser)
	})
}
