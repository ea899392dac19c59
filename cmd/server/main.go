package main // Entry point package

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ecovend/recycle-server/internal/config"
	"github.com/ecovend/recycle-server/internal/database"
	"github.com/ecovend/recycle-server/internal/handler"
	"github.com/ecovend/recycle-server/internal/logger"
	"github.com/ecovend/recycle-server/internal/queue"
	"github.com/ecovend/recycle-server/internal/repository"
	"github.com/ecovend/recycle-server/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Redis is optional: nil disables response caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; caching and rate limiting disabled")
	}

	accounts := repository.NewAccountRepo(db)
	sessions := repository.NewSessionRepo(db)
	points := repository.NewPointsRepo(db)
	coupons := repository.NewCouponRepo(db)
	redemptions := repository.NewRedemptionRepo(db)
	events := repository.NewBottleEventRepo(db)
	board := repository.NewLeaderboardRepo(db)

	h := router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, accounts, sessions, points, log),
		Redemption:  handler.NewRedemptionHandler(points, coupons, redemptions, log),
		Monitoring:  handler.NewMonitoringHandler(events, points, handler.AlwaysValid, log),
		Leaderboard: handler.NewLeaderboardHandler(board, log),
		Student:     handler.NewStudentHandler(accounts, redemptions, log),
		Sessions:    sessions,
	}

	// Audit consumer for bottle.inserted events; runs its own reconnect
	// loop so a broker outage never takes the API down.
	go func() {
		if err := queue.StartBottleConsumer(); err != nil {
			log.Error("bottle consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, h, rdb)

	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
