package repository

import (
	"context"
	"database/sql"

	"github.com/ecovend/recycle-server/internal/model"
)

// CouponRepo reads the coupons_catalog table.  The catalog is static from
// the service's point of view; only active rows are ever served.
type CouponRepo struct{ DB *sql.DB }

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{DB: db} }

// ListActive returns the active catalog ordered by cost, cheapest first.
func (r *CouponRepo) ListActive(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, coupon_name, description, points_required, coupon_value, validity_days
		 FROM coupons_catalog
		 WHERE is_active = 1
		 ORDER BY points_required`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Coupon, 0)
	for rows.Next() {
		var c model.Coupon
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.PointsRequired, &c.Value, &c.ValidityDays); err != nil {
			return nil, err
		}
		c.IsActive = true
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetActiveTx fetches a single active coupon inside the caller's
// transaction.  Inactive or unknown ids report ErrCouponNotFound.
func (r *CouponRepo) GetActiveTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Coupon, error) {
	var c model.Coupon
	err := tx.QueryRowContext(ctx,
		`SELECT id, coupon_name, description, points_required, coupon_value, validity_days
		 FROM coupons_catalog
		 WHERE id=? AND is_active = 1 LIMIT 1`,
		id).Scan(&c.ID, &c.Name, &c.Description, &c.PointsRequired, &c.Value, &c.ValidityDays)
	if err == sql.ErrNoRows {
		return model.Coupon{}, ErrCouponNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	c.IsActive = true
	return c, nil
}
