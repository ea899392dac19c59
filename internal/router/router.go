package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ecovend/recycle-server/internal/config"
	"github.com/ecovend/recycle-server/internal/handler"
	"github.com/ecovend/recycle-server/internal/middleware"
	"github.com/ecovend/recycle-server/internal/repository"
)

// Handlers groups everything RegisterRoutes needs to wire the API.
type Handlers struct {
	Auth        *handler.AuthHandler
	Redemption  *handler.RedemptionHandler
	Monitoring  *handler.MonitoringHandler
	Leaderboard *handler.LeaderboardHandler
	Student     *handler.StudentHandler
	Sessions    *repository.SessionRepo
}

// RegisterRoutes wires the full HTTP surface.  rdb may be nil, in which
// case caching and rate limiting quietly disable themselves.
//
// Route groups:
//
//	/healthz                 – liveness, public
//	/v1/auth/*               – credential endpoints, public, rate limited
//	/v1/monitoring/add-bottle – machine-trusted ingestion, public
//	/v1/*                    – everything else behind the session check
func RegisterRoutes(e *echo.Echo, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Credential endpoints do not require a session but are rate limited
	// per origin so the per-account lockout cannot be farmed across
	// many usernames at full speed.
	authGroup := e.Group("/v1/auth")
	authGroup.POST("/register", h.Auth.Register, limiter)
	authGroup.POST("/login", h.Auth.Login, limiter)
	authGroup.POST("/verify-session", h.Auth.VerifySession)
	authGroup.POST("/logout", h.Auth.Logout)

	// The vending machines authenticate at the network layer, not with
	// sessions; ingestion stays open.  Public read-only projections are
	// cached.
	e.POST("/v1/monitoring/add-bottle", h.Monitoring.AddBottle)
	e.GET("/v1/redemption/coupons", h.Redemption.ListCoupons, cache)
	e.GET("/v1/leaderboard/top", h.Leaderboard.Top, cache)

	// Everything below requires a valid bearer session token.
	auth := e.Group("/v1", middleware.SessionAuth(h.Sessions))
	auth.POST("/redemption/redeem", h.Redemption.Redeem)
	auth.GET("/monitoring/machine-stats", h.Monitoring.MachineStats)
	auth.GET("/monitoring/suspicious-activities", h.Monitoring.SuspiciousActivities)
	auth.GET("/leaderboard/my-rank", h.Leaderboard.MyRank)
	auth.GET("/leaderboard/around-me", h.Leaderboard.AroundMe)
	auth.GET("/students/rfid/:rfid", h.Student.ByRFID)
	auth.GET("/students/id/:studentId", h.Student.ByStudentID)
	auth.GET("/students/:rfid/codes", h.Student.ActiveCodes)
}
