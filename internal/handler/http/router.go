package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linguahub/linguahub/internal/service"
	"github.com/linguahub/linguahub/pkg/health"
	"github.com/linguahub/linguahub/pkg/middleware"
)

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	userService *service.UserService,
	friendService *service.FriendService,
	cookieConfig SessionCookieConfig,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("linguahub"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to the session manager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := userService.ValidateSession(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
		}, nil
	}

	authHandler := NewAuthHandler(userService, cookieConfig, logger)

	// Auth endpoints (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/login", authHandler.Login)
		r.Post("/verify-mfa", authHandler.VerifyMFA)
		r.Post("/google", authHandler.GoogleLogin)
		r.Post("/logout", authHandler.Logout)

		// Authenticated auth endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Get("/me", authHandler.Me)
			r.Get("/check", authHandler.Me)
			r.Post("/onboarding", authHandler.Onboard)
		})
	})

	// User discovery and friend endpoints (auth required)
	userHandler := NewUserHandler(userService, friendService)
	r.Route("/api/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/", userHandler.ListRecommended)
		r.Put("/profile", userHandler.UpdateProfile)

		r.Get("/friends", userHandler.ListFriends)
		r.Delete("/friend/{id}", userHandler.RemoveFriend)

		r.Post("/friend-request/{id}", userHandler.SendFriendRequest)
		r.Put("/friend-request/{id}/accept", userHandler.AcceptFriendRequest)
		r.Put("/friend-request/{id}/reject", userHandler.RejectFriendRequest)

		r.Get("/friend-requests", userHandler.ListFriendRequests)
		r.Get("/outgoing-friend-requests", userHandler.ListOutgoingFriendRequests)
	})

	// Chat integration (auth required)
	chatHandler := NewChatHandler(userService)
	r.Route("/api/chat", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/token", chatHandler.Token)
	})

	return r
}
