// Package router wires every handler into the versioned API surface.
// Server-wide middleware (request id, logger, recoverer) is applied in
// main.go before this router is mounted.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-recruiter-hub/internal/api/audit"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/auth"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/messaging"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/resource"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/user"
)

// Config carries the handlers and middleware the router mounts.
type Config struct {
	AuthHandler      auth.Handler
	UserHandler      user.Handler
	AuditHandler     audit.Handler
	CompanyHandler   resource.Handler
	JobHandler       resource.Handler
	BootcampHandler  resource.Handler
	CourseHandler    resource.Handler
	ReviewHandler    resource.Handler
	MessagingHandler messaging.Handler

	// Authenticate rejects requests without a valid token; Optional lets
	// anonymous requests through so public reads still see a principal
	// when one is present.
	Authenticate         func(http.Handler) http.Handler
	OptionalAuthenticate func(http.Handler) http.Handler
	RequireAdmin         func(http.Handler) http.Handler

	AllowedOrigins []string
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.RegisterHandler)
			r.Post("/login", cfg.AuthHandler.LoginHandler)
			r.Post("/forgotpassword", cfg.AuthHandler.ForgotPasswordHandler)
			r.Put("/resetpassword/{resettoken}", cfg.AuthHandler.ResetPasswordHandler)

			r.Group(func(r chi.Router) {
				r.Use(cfg.Authenticate)
				r.Get("/me", cfg.AuthHandler.MeHandler)
				r.Put("/updatedetails", cfg.AuthHandler.UpdateDetailsHandler)
				r.Put("/updatepassword", cfg.AuthHandler.UpdatePasswordHandler)
				r.Post("/logout", cfg.AuthHandler.LogoutHandler)
			})
		})

		mountResource(r, "/companies", cfg.CompanyHandler, cfg, resourceRoutes{
			radius: true, photo: true, teamImage: true,
			children: []childRoute{{pattern: "/{companyId}/jobs", handler: cfg.JobHandler}},
		})
		mountResource(r, "/jobs", cfg.JobHandler, cfg, resourceRoutes{})
		mountResource(r, "/bootcamps", cfg.BootcampHandler, cfg, resourceRoutes{
			radius: true, photo: true,
			children: []childRoute{
				{pattern: "/{bootcampId}/courses", handler: cfg.CourseHandler},
				{pattern: "/{bootcampId}/reviews", handler: cfg.ReviewHandler},
			},
		})
		mountResource(r, "/courses", cfg.CourseHandler, cfg, resourceRoutes{})
		mountResource(r, "/reviews", cfg.ReviewHandler, cfg, resourceRoutes{})

		r.Route("/rooms", func(r chi.Router) {
			r.Use(cfg.Authenticate)
			r.Get("/", cfg.MessagingHandler.ListRoomsHandler)
			r.Post("/", cfg.MessagingHandler.CreateRoomHandler)
			r.Get("/{id}", cfg.MessagingHandler.GetRoomHandler)
			r.Delete("/{id}", cfg.MessagingHandler.DeleteRoomHandler)
			r.Post("/{roomId}/messages", cfg.MessagingHandler.CreateMessageHandler)
		})
		r.With(cfg.Authenticate).Delete("/messages/{id}", cfg.MessagingHandler.DeleteMessageHandler)

		r.Route("/users", func(r chi.Router) {
			r.Use(cfg.Authenticate, cfg.RequireAdmin)
			r.Get("/", cfg.UserHandler.ListUsersHandler)
			r.Post("/", cfg.UserHandler.CreateUserHandler)
			r.Get("/{id}", cfg.UserHandler.GetUserHandler)
			r.Put("/{id}", cfg.UserHandler.UpdateUserHandler)
			r.Delete("/{id}", cfg.UserHandler.DeleteUserHandler)
		})

		r.With(cfg.Authenticate, cfg.RequireAdmin).Get("/audit", cfg.AuditHandler.ListRecordsHandler)
	})

	return r
}

type childRoute struct {
	pattern string
	handler resource.Handler
}

type resourceRoutes struct {
	radius    bool
	photo     bool
	teamImage bool
	children  []childRoute
}

// mountResource lays out the uniform entity surface: public reads with an
// optional principal, authenticated mutations.
func mountResource(r chi.Router, pattern string, h resource.Handler, cfg *Config, opts resourceRoutes) {
	r.Route(pattern, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(cfg.OptionalAuthenticate)
			r.Get("/", h.ListHandler)
			r.Get("/{id}", h.GetHandler)
			if opts.radius {
				r.Get("/radius/{zipcode}/{distance}", h.RadiusHandler)
				r.Get("/radius/{zipcode}/{distance}/{unit}", h.RadiusHandler)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)
			r.Post("/", h.CreateHandler)
			r.Put("/{id}", h.UpdateHandler)
			r.Delete("/{id}", h.DeleteHandler)
			if opts.photo {
				r.Put("/{id}/photo", h.PhotoUploadHandler)
			}
			if opts.teamImage {
				r.Put("/{id}/team-image", h.TeamImageUploadHandler)
			}
		})

		for _, child := range opts.children {
			r.Group(func(r chi.Router) {
				r.Use(cfg.OptionalAuthenticate)
				r.Get(child.pattern, child.handler.ListHandler)
			})
			r.With(cfg.Authenticate).Post(child.pattern, child.handler.CreateHandler)
		}
	})
}
