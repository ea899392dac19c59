package model

import "time"

// Account represents a student account as stored in the `users` table.
// Each field corresponds to a column.  The json tags are omitted because
// these structs are used by the repository layer only; the sanitized
// AccountView is what handlers serialize.
//
// Fields:
//  ID            – primary key identifier.
//  RFID          – unique identifier of the student's physical card.
//  Username      – unique login name.
//  PINHash       – bcrypt hash of the numeric PIN.
//  Name          – display name.
//  StudentID     – external student identifier.
//  Email         – optional contact email (nullable).
//  LoginAttempts – consecutive failed PIN checks since the last success.
//  AccountLocked – whether the account is currently flagged locked.
//  LockedUntil   – when the lock expires (null while unlocked).
//  LastLogin     – timestamp of the last successful login (nullable).
//  CreatedAt     – timestamp of registration.
//  UpdatedAt     – timestamp of last update.
type Account struct {
	ID            uint64     // users.id
	RFID          string     // users.rfid_id
	Username      string     // users.username
	PINHash       string     // users.pin_hash
	Name          string     // users.name
	StudentID     string     // users.student_id
	Email         *string    // users.email (nullable)
	LoginAttempts int        // users.login_attempts
	AccountLocked bool       // users.account_locked
	LockedUntil   *time.Time // users.locked_until (nullable)
	LastLogin     *time.Time // users.last_login (nullable)
	CreatedAt     time.Time  // users.created_at
	UpdatedAt     time.Time  // users.updated_at
}

// AccountView is the public projection of an Account.  It is built once at
// the data-access boundary and never carries the PIN hash or the lockout
// bookkeeping columns, so a view can be handed to any caller as-is.
type AccountView struct {
	ID           uint64     `json:"id"`
	RFID         string     `json:"rfid_id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	StudentID    string     `json:"student_id"`
	Email        *string    `json:"email,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	TotalPoints  int64      `json:"total_points"`
	TotalBottles int64      `json:"total_bottles"`
}

// View projects the account into its sanitized form.  Point totals are
// supplied separately because they live in the user_points table.
func (a Account) View(totalPoints, totalBottles int64) AccountView {
	return AccountView{
		ID:           a.ID,
		RFID:         a.RFID,
		Username:     a.Username,
		Name:         a.Name,
		StudentID:    a.StudentID,
		Email:        a.Email,
		LastLogin:    a.LastLogin,
		TotalPoints:  totalPoints,
		TotalBottles: totalBottles,
	}
}
