package repository

import (
	"context"
	"database/sql"

	"github.com/ecovend/recycle-server/internal/model"
)

// PointsRepo manages the user_points table: one balance row per account,
// increased by ingestion and decreased by redemption.  The balance must
// never go negative; DeductTx is only called after GetForUpdateTx has
// locked the row and the caller has checked sufficiency.
type PointsRepo struct{ DB *sql.DB }

func NewPointsRepo(db *sql.DB) *PointsRepo { return &PointsRepo{DB: db} }

// Get returns the balance row for an RFID.  sql.ErrNoRows when the
// account has never inserted a bottle and was not registered.
func (r *PointsRepo) Get(ctx context.Context, rfid string) (model.PointBalance, error) {
	var b model.PointBalance
	err := r.DB.QueryRowContext(ctx,
		"SELECT rfid_id, total_points, total_bottles, last_updated FROM user_points WHERE rfid_id=? LIMIT 1",
		rfid).Scan(&b.RFID, &b.TotalPoints, &b.TotalBottles, &b.LastUpdated)
	return b, err
}

// GetForUpdateTx reads the current point total inside the caller's
// transaction with a row lock.  Holding the lock across the sufficiency
// check and the deduction is what keeps two concurrent redemptions from
// both spending the same points.
func (r *PointsRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, rfid string) (int64, error) {
	var total int64
	err := tx.QueryRowContext(ctx,
		"SELECT total_points FROM user_points WHERE rfid_id=? FOR UPDATE",
		rfid).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	return total, err
}

// DeductTx subtracts points from the locked balance row.
func (r *PointsRepo) DeductTx(ctx context.Context, tx *sql.Tx, rfid string, points int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE user_points SET total_points = total_points - ?, last_updated = NOW() WHERE rfid_id=?",
		points, rfid)
	return err
}

// Add credits points and bottles to an account in a single atomic upsert.
// The increment happens in SQL, not read-modify-write in the application,
// so concurrent insertions from the same machine cannot lose updates.
func (r *PointsRepo) Add(ctx context.Context, rfid string, points, bottles int64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_points (rfid_id, total_points, total_bottles)
		 VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE
		   total_points = total_points + VALUES(total_points),
		   total_bottles = total_bottles + VALUES(total_bottles),
		   last_updated = NOW()`,
		rfid, points, bottles)
	return err
}
