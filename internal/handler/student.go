package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ecovend/recycle-server/internal/repository"
)

// StudentHandler serves read-only student lookups.  Every response is a
// sanitized view: the PIN hash and lockout columns never leave the
// repository layer.
type StudentHandler struct {
	Accounts    *repository.AccountRepo
	Redemptions *repository.RedemptionRepo
	Log         *zap.Logger
}

func NewStudentHandler(a *repository.AccountRepo, rd *repository.RedemptionRepo, log *zap.Logger) *StudentHandler {
	return &StudentHandler{Accounts: a, Redemptions: rd, Log: log}
}

// ByRFID looks up a student by card identifier.
func (h *StudentHandler) ByRFID(c echo.Context) error {
	rfid := c.Param("rfid")
	if rfid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rfid required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Accounts.GetViewByRFID(ctx, rfid)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
	}
	if err != nil {
		h.Log.Error("student by rfid failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, view)
}

// ByStudentID looks up a student by external student identifier.
func (h *StudentHandler) ByStudentID(c echo.Context) error {
	sid := c.Param("studentId")
	if sid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Accounts.GetViewByStudentID(ctx, sid)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
	}
	if err != nil {
		h.Log.Error("student by id failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, view)
}

// ActiveCodes lists the student's unexpired redemption codes.
func (h *StudentHandler) ActiveCodes(c echo.Context) error {
	rfid := c.Param("rfid")
	if rfid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rfid required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	codes, err := h.Redemptions.ListActiveCodes(ctx, rfid)
	if err != nil {
		h.Log.Error("active codes failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, codes)
}
