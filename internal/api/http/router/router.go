package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pressbox/pressbox/internal/api/http/handler"
	"github.com/pressbox/pressbox/internal/api/http/middleware"
	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
)

// Router wires services into the HTTP route tree.
type Router struct {
	authService    handler.AuthService
	tokenService   handler.TokenService
	accessEngine   handler.AccessEngine
	articleService handler.ArticleService
	mediaService   handler.MediaService
	tokenParser    middleware.TokenParser
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	authService handler.AuthService,
	tokenService handler.TokenService,
	accessEngine handler.AccessEngine,
	articleService handler.ArticleService,
	mediaService handler.MediaService,
	tokenParser middleware.TokenParser,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		tokenService:   tokenService,
		accessEngine:   accessEngine,
		articleService: articleService,
		mediaService:   mediaService,
		tokenParser:    tokenParser,
		logger:         logger,
	}
}

// Register builds the route tree with logging, recovery and identity
// resolution applied to every request.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenParser, r.logger)

	authHandler := handler.NewAuth(r.authService, r.tokenService, r.logger)
	articleHandler := handler.NewArticle(r.accessEngine, r.articleService, r.mediaService, r.logger)

	mux := chi.NewRouter()
	mux.Use(chimiddleware.RealIP)
	mux.Use(logging.Handle)
	mux.Use(chimiddleware.Recoverer)

	mux.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/request-code", authHandler.RequestCode)
			auth.Post("/verify", authHandler.Verify)
			auth.Post("/refresh", authHandler.Refresh)
			auth.Post("/logout", authHandler.Logout)
		})

		api.Group(func(content chi.Router) {
			content.Use(authenticate.Handle)

			content.Get("/articles", articleHandler.List)
			content.Get("/articles/{slug}", articleHandler.Get)
			content.Get("/media/*", articleHandler.DownloadMedia)

			content.Group(func(writers chi.Router) {
				writers.Use(middleware.RequireRole(model.RoleAuthor, model.RoleAdmin))

				writers.Post("/articles", articleHandler.Create)
				writers.Put("/articles/{id}", articleHandler.Update)
				writers.Delete("/articles/{id}", articleHandler.Delete)
				writers.Post("/media", articleHandler.UploadMedia)
			})
		})
	})

	return mux
}
