package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ecovend/recycle-server/internal/model"
	"github.com/ecovend/recycle-server/internal/repository"
	"github.com/ecovend/recycle-server/internal/utils"
)

// couponValidFor is how long a redeemed code stays presentable.
const couponValidFor = 30 * 24 * time.Hour

// RedemptionHandler executes the points-for-coupon exchange and serves
// the coupon catalog.  Redeem is the one operation in the system that
// must be atomic end to end: the balance read, the sufficiency check,
// the deduction and the record insert all run under one transaction with
// the balance row locked.
type RedemptionHandler struct {
	Points      *repository.PointsRepo
	Coupons     *repository.CouponRepo
	Redemptions *repository.RedemptionRepo
	Log         *zap.Logger
}

func NewRedemptionHandler(p *repository.PointsRepo, cp *repository.CouponRepo, rd *repository.RedemptionRepo, log *zap.Logger) *RedemptionHandler {
	return &RedemptionHandler{Points: p, Coupons: cp, Redemptions: rd, Log: log}
}

type redeemReq struct {
	RFID     string `json:"rfid"`
	CouponID uint64 `json:"coupon_id"`
}

// Redeem exchanges points for a coupon code.  Any failure between the
// balance read and the record insert rolls the whole exchange back, so a
// failed redemption leaves balance and catalog untouched.
func (h *RedemptionHandler) Redeem(c echo.Context) error {
	var req redeemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RFID = strings.TrimSpace(req.RFID)
	if req.RFID == "" || req.CouponID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rfid/coupon_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Points.DB.BeginTx(ctx, nil)
	if err != nil {
		h.Log.Error("redeem: begin tx failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the balance row first.  Every later step happens under this
	// lock, which is what makes two concurrent redemptions against the
	// same account serialize instead of both passing the check below.
	balance, err := h.Points.GetForUpdateTx(ctx, tx, req.RFID)
	if err == repository.ErrAccountNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}
	if err != nil {
		h.Log.Error("redeem: balance query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
	}

	coupon, err := h.Coupons.GetActiveTx(ctx, tx, req.CouponID)
	if err == repository.ErrCouponNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
	}
	if err != nil {
		h.Log.Error("redeem: coupon query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
	}

	if balance < coupon.PointsRequired {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":         "insufficient points",
			"points_needed": coupon.PointsRequired - balance,
		})
	}

	code, err := utils.NewRedemptionCode()
	if err != nil {
		h.Log.Error("redeem: code generation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
	}

	if err := h.Points.DeductTx(ctx, tx, req.RFID, coupon.PointsRequired); err != nil {
		h.Log.Error("redeem: deduct failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
	}
	rec := model.RedeemedCoupon{
		RFID:       req.RFID,
		CouponID:   coupon.ID,
		PointsUsed: coupon.PointsRequired,
		Code:       code,
		Status:     model.RedemptionStatusActive,
		ExpiryDate: time.Now().UTC().Add(couponValidFor),
	}
	if err := h.Redemptions.CreateTx(ctx, tx, &rec); err != nil {
		h.Log.Error("redeem: insert record failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
	}

	if err := tx.Commit(); err != nil {
		h.Log.Error("redeem: commit failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"code":        code,
		"coupon":      coupon.Name,
		"points_used": coupon.PointsRequired,
	})
}

// ListCoupons serves the active catalog ordered by cost.
func (h *RedemptionHandler) ListCoupons(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	coupons, err := h.Coupons.ListActive(ctx)
	if err != nil {
		h.Log.Error("list coupons failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, coupons)
}
