package model

import "time"

// Session models a row in the `user_sessions` table.  The raw token is
// stored verbatim; it is an opaque random string, so possession of the
// database row alone does not reveal any credential that outlives the
// session itself.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the session.
//  Token     – opaque bearer token handed to the client.
//  ExpiresAt – fixed expiry set at login; never extended.
//  IPAddress – address the login originated from.
//  CreatedAt – timestamp of creation.
type Session struct {
	ID        uint64    // user_sessions.id
	UserID    uint64    // user_sessions.user_id
	Token     string    // user_sessions.session_token
	ExpiresAt time.Time // user_sessions.expires_at
	IPAddress string    // user_sessions.ip_address
	CreatedAt time.Time // user_sessions.created_at
}

// LoginAttempt is an append-only audit row in the `login_attempts` table.
// Failed attempts against unknown usernames carry a nil UserID.
type LoginAttempt struct {
	ID          uint64    // login_attempts.id
	UserID      *uint64   // login_attempts.user_id (nullable)
	IPAddress   string    // login_attempts.ip_address
	Success     bool      // login_attempts.success
	AttemptedAt time.Time // login_attempts.attempted_at
}
