package model

import "time"

// Coupon is a row in the `coupons_catalog` table.  The catalog is a
// mostly static list of rewards students can exchange points for.
type Coupon struct {
	ID             uint64 `json:"id"`              // coupons_catalog.id
	Name           string `json:"coupon_name"`     // coupons_catalog.coupon_name
	Description    string `json:"description"`     // coupons_catalog.description
	PointsRequired int64  `json:"points_required"` // coupons_catalog.points_required
	Value          string `json:"coupon_value"`    // coupons_catalog.coupon_value
	ValidityDays   int    `json:"validity_days"`   // coupons_catalog.validity_days
	IsActive       bool   `json:"-"`               // coupons_catalog.is_active
}

// Redeemed coupon status values.
const (
	RedemptionStatusActive  = "active"
	RedemptionStatusUsed    = "used"
	RedemptionStatusExpired = "expired"
)

// RedeemedCoupon models a row in the `redeemed_coupons` table.  A row is
// created only by the redemption transaction, and its PointsUsed always
// equals the coupon's cost at the moment of redemption.
type RedeemedCoupon struct {
	ID         uint64    // redeemed_coupons.id
	RFID       string    // redeemed_coupons.rfid_id
	CouponID   uint64    // redeemed_coupons.coupon_id
	PointsUsed int64     // redeemed_coupons.points_used
	Code       string    // redeemed_coupons.redemption_code
	Status     string    // redeemed_coupons.status
	ExpiryDate time.Time // redeemed_coupons.expiry_date
	RedeemedAt time.Time // redeemed_coupons.redeemed_at
}
