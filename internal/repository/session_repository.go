package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ecovend/recycle-server/internal/model"
)

// SessionRepo persists opaque session tokens in the user_sessions table.
// A token grants access exactly until its expires_at; expiry is fixed at
// creation and never slides.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// CreateTx inserts a session row inside the caller's transaction so the
// session only exists if the surrounding login commit succeeds.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID uint64, token string, exp time.Time, ip string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO user_sessions (user_id, session_token, expires_at, ip_address) VALUES (?,?,?,?)",
		userID, token, exp, ip)
	return err
}

// Verify resolves a token to the sanitized view of its owner.  The
// expires_at filter runs in SQL, so a physically present but expired row
// behaves exactly like a missing one: sql.ErrNoRows.
func (r *SessionRepo) Verify(ctx context.Context, token string) (model.AccountView, error) {
	var (
		v         model.AccountView
		email     sql.NullString
		lastLogin sql.NullTime
		points    sql.NullInt64
		bottles   sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT u.id, u.rfid_id, u.username, u.name, u.student_id, u.email, u.last_login,
		        p.total_points, p.total_bottles
		 FROM user_sessions s
		 JOIN users u ON u.id = s.user_id
		 LEFT JOIN user_points p ON p.rfid_id = u.rfid_id
		 WHERE s.session_token=? AND s.expires_at > NOW()
		 LIMIT 1`,
		token).Scan(&v.ID, &v.RFID, &v.Username, &v.Name, &v.StudentID,
		&email, &lastLogin, &points, &bottles)
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

// Delete removes a session row by token.  Deleting an absent token is
// not an error, which makes logout idempotent.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_sessions WHERE session_token=?", token)
	return err
}
