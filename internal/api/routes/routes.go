package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ats-platform/ats-backend/internal/api/handlers"
	"github.com/ats-platform/ats-backend/internal/api/middleware"
	"github.com/ats-platform/ats-backend/internal/cache"
	"github.com/ats-platform/ats-backend/internal/security"
)

type Deps struct {
	Tokens   *security.TokenProvider
	Denylist cache.Cache

	Auth         *handlers.AuthHandler
	Jobs         *handlers.JobHandler
	Applications *handlers.ApplicationHandler
	WS           *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	authRequired := middleware.JWTAuth(d.Tokens, d.Denylist)

	// Auth
	r.POST("/api/auth/login/", d.Auth.Login)
	r.POST("/api/auth/register/", d.Auth.Register)
	r.POST("/api/auth/refresh/", d.Auth.Refresh)
	r.GET("/api/auth/me/", authRequired, d.Auth.Me)
	r.POST("/api/auth/logout/", authRequired, d.Auth.Logout)

	// Jobs: reads are public, writes are owner-gated in the service
	r.GET("/api/jobs/", d.Jobs.List)
	r.GET("/api/jobs/:id/", d.Jobs.Get)
	r.GET("/api/jobs/:id/applications/", d.Jobs.Applications)
	r.POST("/api/jobs/", authRequired, d.Jobs.Create)
	r.PUT("/api/jobs/:id/", authRequired, d.Jobs.Update)
	r.DELETE("/api/jobs/:id/", authRequired, d.Jobs.Delete)
	r.POST("/api/jobs/:id/close/", authRequired, d.Jobs.Close)
	r.POST("/api/jobs/:id/reopen/", authRequired, d.Jobs.Reopen)

	// Applications: submission is public, everything else is for
	// authenticated recruiters
	r.POST("/api/applications/", d.Applications.Submit)
	r.GET("/api/applications/", authRequired, d.Applications.List)
	r.POST("/api/applications/bulk_update/", authRequired, d.Applications.BulkUpdate)
	r.GET("/api/applications/:id/", authRequired, d.Applications.Get)
	r.PATCH("/api/applications/:id/", authRequired, d.Applications.UpdateStatus)
	r.GET("/api/applications/:id/history/", authRequired, d.Applications.History)
	r.GET("/api/applications/:id/parse_runs/", authRequired, d.Applications.ParseRuns)
	r.POST("/api/applications/:id/reparse/", authRequired, d.Applications.Reparse)

	// WebSocket event feed
	r.GET("/ws/events", authRequired, d.WS.Events)
}
