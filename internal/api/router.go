// Package api wires HTTP handlers and middleware into a gin engine.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bhashahub/crowdsource/internal/api/dashboard"
	"github.com/bhashahub/crowdsource/internal/api/handlers"
	"github.com/bhashahub/crowdsource/internal/api/middleware"
	"github.com/bhashahub/crowdsource/internal/config"
	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// SetupRouter configures and returns the main gin engine.
func SetupRouter(cfg *config.Config, h *handlers.Handler, dash *dashboard.Handler, log *logger.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log.Component("http")))

	writes := middleware.NewRateLimiter(cfg.Server.RateLimit)

	v1 := r.Group("/api/v1")
	{
		// Public routes
		v1.GET("/health", h.Health)
		v1.GET("/languages", h.ListLanguages)
		v1.GET("/languages/:code", h.GetLanguage)
		v1.GET("/badges", dash.GetBadgeCatalog)

		authed := v1.Group("/")
		authed.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
		{
			authed.GET("/me", h.GetMe)
			authed.PATCH("/me", h.UpdateMe)
			authed.GET("/me/stats", dash.GetMyStats)
			authed.GET("/me/contributions", h.ListMyContributions)
			authed.GET("/me/challenges", h.ListMyChallenges)

			authed.POST("/contributions", writes.Limit(), h.SubmitContribution)
			authed.GET("/languages/:code/contributions", h.ListLanguageContributions)
			authed.POST("/uploads", writes.Limit(), h.CreateUpload)

			authed.GET("/leaderboard", dash.GetLeaderboard)

			authed.GET("/challenges", h.ListChallenges)
			authed.GET("/challenges/:id", h.GetChallenge)
			authed.POST("/challenges/:id/join", h.JoinChallenge)
		}

		reviewers := v1.Group("/")
		reviewers.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer), middleware.RequireRole(models.RoleReviewer, models.RoleAdmin))
		{
			reviewers.POST("/contributions/:id/review", h.ReviewContribution)
		}

		admins := v1.Group("/")
		admins.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer), middleware.RequireRole(models.RoleAdmin))
		{
			admins.GET("/users", h.ListUsers)
			admins.GET("/users/:id/stats", dash.GetUserStats)
			admins.POST("/challenges", h.CreateChallenge)
		}
	}

	return r
}
