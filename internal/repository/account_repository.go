package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ecovend/recycle-server/internal/model"
	"github.com/ecovend/recycle-server/internal/utils"
)

// AccountRepo provides access to the users and login_attempts tables.
// Login-path mutations ship as ...Tx variants because the lockout state
// machine must run under a row lock held for the whole check-then-act
// sequence; the caller owns the transaction.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

// Create registers a new account with a bcrypt-hashed PIN and a zeroed
// point balance row.  Both inserts run in one transaction so an account
// never exists without its balance.  Duplicate identifiers are reported
// with ErrRFIDExists / ErrUsernameExists before the insert is attempted.
func (r *AccountRepo) Create(ctx context.Context, rfid, username, pin, name, studentID string, email *string, cost int) (model.Account, error) {
	username = strings.TrimSpace(username)
	rfid = strings.TrimSpace(rfid)

	hash, err := utils.HashPIN(pin, cost)
	if err != nil {
		return model.Account{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Account{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE rfid_id=?", rfid).Scan(&exists)
	if err != nil {
		return model.Account{}, err
	}
	if exists > 0 {
		return model.Account{}, ErrRFIDExists
	}
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username=?", username).Scan(&exists)
	if err != nil {
		return model.Account{}, err
	}
	if exists > 0 {
		return model.Account{}, ErrUsernameExists
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (rfid_id, username, pin_hash, name, student_id, email) VALUES (?,?,?,?,?,?)",
		rfid, username, hash, name, studentID, email)
	if err != nil {
		return model.Account{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Account{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_points (rfid_id, total_points, total_bottles) VALUES (?,0,0)",
		rfid); err != nil {
		return model.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Account{}, err
	}
	committed = true

	return model.Account{
		ID:        uint64(id),
		RFID:      rfid,
		Username:  username,
		Name:      name,
		StudentID: studentID,
		Email:     email,
	}, nil
}

// GetByUsernameForUpdateTx fetches an account by username inside the
// caller's transaction, locking the row (SELECT ... FOR UPDATE) so that
// concurrent login attempts serialize on the attempt counter.
func (r *AccountRepo) GetByUsernameForUpdateTx(ctx context.Context, tx *sql.Tx, username string) (model.Account, error) {
	username = strings.TrimSpace(username)
	var (
		a           model.Account
		email       sql.NullString
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, rfid_id, username, pin_hash, name, student_id, email,
		        login_attempts, account_locked, locked_until, last_login
		 FROM users WHERE username=? LIMIT 1 FOR UPDATE`,
		username).Scan(&a.ID, &a.RFID, &a.Username, &a.PINHash, &a.Name, &a.StudentID,
		&email, &a.LoginAttempts, &a.AccountLocked, &lockedUntil, &lastLogin)
	if err != nil {
		return model.Account{}, err
	}
	if email.Valid {
		v := email.String
		a.Email = &v
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		a.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return a, nil
}

// RecordFailureTx increments the failed-attempt counter for the account.
// The caller holds the row lock, so the increment cannot lose an update.
func (r *AccountRepo) RecordFailureTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET login_attempts = login_attempts + 1 WHERE id=?", id)
	return err
}

// LockTx flags the account locked until the given time.
func (r *AccountRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64, until time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET account_locked=1, locked_until=? WHERE id=?", until, id)
	return err
}

// ResetLockTx clears the attempt counter and any lock, and stamps the
// last successful login.  Called on every successful PIN check.
func (r *AccountRepo) ResetLockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET login_attempts=0, account_locked=0, locked_until=NULL, last_login=NOW() WHERE id=?", id)
	return err
}

// RecordAttemptTx appends a login_attempts audit row.  userID is nil when
// the submitted username did not match any account.
func (r *AccountRepo) RecordAttemptTx(ctx context.Context, tx *sql.Tx, userID *uint64, ip string, success bool) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO login_attempts (user_id, ip_address, success) VALUES (?,?,?)",
		userID, ip, success)
	return err
}

// GetViewByRFID returns the sanitized account view for an RFID, joined
// with the point balance.  sql.ErrNoRows means no such student.
func (r *AccountRepo) GetViewByRFID(ctx context.Context, rfid string) (model.AccountView, error) {
	return r.getView(ctx, "u.rfid_id=?", rfid)
}

// GetViewByStudentID is GetViewByRFID keyed by the external student id.
func (r *AccountRepo) GetViewByStudentID(ctx context.Context, studentID string) (model.AccountView, error) {
	return r.getView(ctx, "u.student_id=?", studentID)
}

func (r *AccountRepo) getView(ctx context.Context, where string, arg any) (model.AccountView, error) {
	var (
		v         model.AccountView
		email     sql.NullString
		lastLogin sql.NullTime
		points    sql.NullInt64
		bottles   sql.NullInt64
	)
	q := `SELECT u.id, u.rfid_id, u.username, u.name, u.student_id, u.email, u.last_login,
	             p.total_points, p.total_bottles
	      FROM users u
	      LEFT JOIN user_points p ON p.rfid_id = u.rfid_id
	      WHERE ` + where + ` LIMIT 1`
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&v.ID, &v.RFID, &v.Username, &v.Name,
		&v.StudentID, &email, &lastLogin, &points, &bottles)
	if err != nil {
		return model.AccountView{}, err
	}
	if email.Valid {
		e := email.String
		v.Email = &e
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		v.LastLogin = &t
	}
	v.TotalPoints = points.Int64
	v.TotalBottles = bottles.Int64
	return v, nil
}
