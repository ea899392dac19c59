package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ecovend/recycle-server/internal/config"
	"github.com/ecovend/recycle-server/internal/model"
	"github.com/ecovend/recycle-server/internal/repository"
	"github.com/ecovend/recycle-server/internal/utils"
)

// Lockout parameters.  Three consecutive failed PIN checks lock the
// account for thirty minutes; a successful login clears both counter and
// lock.  These values define the product behavior and are not tunable
// through the environment.
const (
	lockThreshold = 3
	lockDuration  = 30 * time.Minute
)

// AuthHandler bundles dependencies for the auth endpoints.  Login runs its
// whole attempt-counting sequence inside one transaction with the user row
// locked, so the counter, lock flag and session insert commit or roll back
// as a unit.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
	Sessions *repository.SessionRepo
	Points   *repository.PointsRepo
	Log      *zap.Logger
}

func NewAuthHandler(cfg config.Config, a *repository.AccountRepo, s *repository.SessionRepo, p *repository.PointsRepo, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: a, Sessions: s, Points: p, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	RFID      string  `json:"rfid"`
	Username  string  `json:"username"`
	PIN       string  `json:"pin"`
	Name      string  `json:"name"`
	StudentID string  `json:"student_id"`
	Email     *string `json:"email"`
}
type loginReq struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}
type tokenReq struct {
	SessionToken string `json:"session_token"`
}

type loginResp struct {
	Success      bool              `json:"success"`
	SessionToken string            `json:"session_token"`
	ExpiresAt    time.Time         `json:"expires_at"`
	User         model.AccountView `json:"user"`
}

// Register creates a new account with a zeroed point balance.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RFID = strings.TrimSpace(req.RFID)
	req.Username = strings.TrimSpace(req.Username)
	if req.RFID == "" || req.Username == "" || req.PIN == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rfid/username/pin required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.Accounts.Create(ctx, req.RFID, req.Username, req.PIN, req.Name, req.StudentID, req.Email, h.Cfg.BcryptCost)
	if err != nil {
		switch err {
		case repository.ErrRFIDExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "rfid already registered"})
		case repository.ErrUsernameExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		}
		h.Log.Error("register failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"user":    acct.View(0, 0),
	})
}

// Login verifies the PIN and drives the lockout state machine.  The user
// row is locked for the duration so concurrent attempts serialize: the
// counter increment, the threshold check and the lock update see one
// consistent row.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.PIN == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/pin required"})
	}
	ip := c.RealIP()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Accounts.DB.BeginTx(ctx, nil)
	if err != nil {
		h.Log.Error("login: begin tx failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	acct, err := h.Accounts.GetByUsernameForUpdateTx(ctx, tx, req.Username)
	if err == sql.ErrNoRows {
		// Record the anonymous failure, then report generic credentials
		// error so usernames cannot be probed.
		if err := h.Accounts.RecordAttemptTx(ctx, tx, nil, ip, false); err != nil {
			h.Log.Error("login: record attempt failed", zap.Error(err))
		} else if err := tx.Commit(); err == nil {
			committed = true
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		h.Log.Error("login: query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	now := time.Now().UTC()
	if acct.AccountLocked && acct.LockedUntil != nil && acct.LockedUntil.After(now) {
		// Still locked: reject without touching the attempt counter.
		return c.JSON(http.StatusLocked, echo.Map{
			"error":        "account locked",
			"locked_until": acct.LockedUntil,
		})
	}

	if !utils.VerifyPIN(acct.PINHash, req.PIN) {
		if err := h.Accounts.RecordFailureTx(ctx, tx, acct.ID); err != nil {
			h.Log.Error("login: record failure failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
		uid := acct.ID
		if err := h.Accounts.RecordAttemptTx(ctx, tx, &uid, ip, false); err != nil {
			h.Log.Error("login: record attempt failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
		if acct.LoginAttempts+1 >= lockThreshold {
			until := now.Add(lockDuration)
			if err := h.Accounts.LockTx(ctx, tx, acct.ID, until); err != nil {
				h.Log.Error("login: lock failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
			}
			if err := tx.Commit(); err != nil {
				h.Log.Error("login: commit failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
			}
			committed = true
			return c.JSON(http.StatusLocked, echo.Map{
				"error":        "account locked due to too many failed attempts",
				"locked_until": until,
			})
		}
		if err := tx.Commit(); err != nil {
			h.Log.Error("login: commit failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
		committed = true
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// PIN verified: clear the lockout state and mint a session inside the
	// same transaction.
	if err := h.Accounts.ResetLockTx(ctx, tx, acct.ID); err != nil {
		h.Log.Error("login: reset lock failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	uid := acct.ID
	if err := h.Accounts.RecordAttemptTx(ctx, tx, &uid, ip, true); err != nil {
		h.Log.Error("login: record attempt failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	token, err := utils.NewSessionToken(h.Cfg.SessionTTLHours)
	if err != nil {
		h.Log.Error("login: mint token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if err := h.Sessions.CreateTx(ctx, tx, acct.ID, token.Raw, token.Exp, ip); err != nil {
		h.Log.Error("login: save session failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if err := tx.Commit(); err != nil {
		h.Log.Error("login: commit failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	committed = true

	// Balance lives outside the locked row; fetch it for the response view.
	var totalPoints, totalBottles int64
	if bal, err := h.Points.Get(ctx, acct.RFID); err == nil {
		totalPoints, totalBottles = bal.TotalPoints, bal.TotalBottles
	}

	return c.JSON(http.StatusOK, loginResp{
		Success:      true,
		SessionToken: token.Raw,
		ExpiresAt:    token.Exp,
		User:         acct.View(totalPoints, totalBottles),
	})
}

// VerifySession resolves a raw token to its owner's sanitized view.
func (h *AuthHandler) VerifySession(c echo.Context) error {
	var req tokenReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.SessionToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Sessions.Verify(ctx, strings.TrimSpace(req.SessionToken))
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
	}
	if err != nil {
		h.Log.Error("verify session failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": view})
}

// Logout deletes the session row.  Deleting an already-absent token still
// acks: logout is idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req tokenReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.SessionToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Delete(ctx, strings.TrimSpace(req.SessionToken)); err != nil {
		h.Log.Error("logout failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logout successful"})
}
