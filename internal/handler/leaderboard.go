package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ecovend/recycle-server/internal/middleware"
	"github.com/ecovend/recycle-server/internal/repository"
)

// LeaderboardHandler serves the point rankings.  Top is public (and
// cacheable); my-rank and around-me need the caller's identity from the
// session middleware.
type LeaderboardHandler struct {
	Board *repository.LeaderboardRepo
	Log   *zap.Logger
}

func NewLeaderboardHandler(b *repository.LeaderboardRepo, log *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{Board: b, Log: log}
}

// Top returns the first `limit` entries (default 10, capped at 100).
func (h *LeaderboardHandler) Top(c echo.Context) error {
	limit := 10
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Board.Top(ctx, limit)
	if err != nil {
		h.Log.Error("leaderboard top failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, entries)
}

// MyRank returns the caller's own leaderboard entry.  A student with no
// balance row is not an error, just not on the board yet.
func (h *LeaderboardHandler) MyRank(c echo.Context) error {
	acct, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, err := h.Board.ForUser(ctx, acct.ID)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusOK, echo.Map{
			"total_points":  0,
			"total_bottles": 0,
			"message":       "Start recycling to get on the leaderboard!",
		})
	}
	if err != nil {
		h.Log.Error("leaderboard my-rank failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, entry)
}

// AroundMe returns the entries within two positions of the caller.
func (h *LeaderboardHandler) AroundMe(c echo.Context) error {
	acct, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Board.Around(ctx, acct.ID, 2)
	if err != nil {
		h.Log.Error("leaderboard around-me failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, entries)
}
