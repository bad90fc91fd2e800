package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/01Justinnguyen/chirper-api/internal/auth"
	"github.com/01Justinnguyen/chirper-api/internal/config"
	"github.com/01Justinnguyen/chirper-api/internal/httputil"
	"github.com/01Justinnguyen/chirper-api/internal/logging"
	"github.com/01Justinnguyen/chirper-api/internal/social"
	"github.com/01Justinnguyen/chirper-api/internal/user"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	socialHandler *social.Handler,
	gate *auth.Middleware,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Use-Cookies"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		// Public
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/verify-forgot-password", authHandler.VerifyForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.Post("/resend-verification", authHandler.ResendVerificationEmail)
			r.Put("/change-password", authHandler.ChangePassword)
		})
	})

	r.Route("/users", func(r chi.Router) {
		// Public profile lookup
		r.Get("/{username}", userHandler.GetByUsername)

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.Get("/me", userHandler.GetMe)

			// Mutations additionally require a verified account
			r.Group(func(r chi.Router) {
				r.Use(gate.RequireVerified)
				r.Patch("/me", userHandler.UpdateMe)
				r.Post("/follow", socialHandler.Follow)
				r.Delete("/follow/{user_id}", socialHandler.Unfollow)
			})
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
