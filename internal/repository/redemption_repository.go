package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ecovend/recycle-server/internal/model"
)

// RedemptionRepo writes and reads redeemed_coupons rows.  Rows are only
// created by the redemption transaction; listing is a plain projection.
type RedemptionRepo struct{ DB *sql.DB }

func NewRedemptionRepo(db *sql.DB) *RedemptionRepo { return &RedemptionRepo{DB: db} }

// CreateTx inserts the redemption record inside the caller's transaction
// and populates the generated ID.  Status starts as active and the expiry
// is fixed at creation.
func (r *RedemptionRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.RedeemedCoupon) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO redeemed_coupons (rfid_id, coupon_id, points_used, redemption_code, status, expiry_date)
		 VALUES (?,?,?,?,?,?)`,
		rec.RFID, rec.CouponID, rec.PointsUsed, rec.Code, rec.Status, rec.ExpiryDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// ActiveCode is one unexpired redemption a student can still present.
type ActiveCode struct {
	Code       string    `json:"redemption_code"`
	CouponName string    `json:"coupon_name"`
	Status     string    `json:"status"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// ListActiveCodes returns a student's active, unexpired redemption codes,
// newest first.
func (r *RedemptionRepo) ListActiveCodes(ctx context.Context, rfid string) ([]ActiveCode, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT rc.redemption_code, cc.coupon_name, rc.status, rc.expiry_date
		 FROM redeemed_coupons rc
		 JOIN coupons_catalog cc ON cc.id = rc.coupon_id
		 WHERE rc.rfid_id=? AND rc.status='active' AND rc.expiry_date > NOW()
		 ORDER BY rc.redeemed_at DESC`,
		rfid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ActiveCode, 0)
	for rows.Next() {
		var c ActiveCode
		if err := rows.Scan(&c.Code, &c.CouponName, &c.Status, &c.ExpiryDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
