package utils // package utils provides helpers for session tokens and redemption codes

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding for token strings
	"time"         // expiry calculation
)

// SessionToken is an opaque bearer credential minted on successful login.
// The Raw field is handed back to the client and stored verbatim in the
// user_sessions table; Exp records the fixed expiry set at creation.
// There is no sliding expiry: a token is valid exactly until Exp.
type SessionToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewSessionToken returns a cryptographically secure random session token
// valid for the given number of hours.  Tokens are 32 random bytes encoded
// as 64 hex characters, which makes them unguessable in practice.
func NewSessionToken(ttlHours int) (SessionToken, error) {
	raw, err := randomHex(32) // 32 bytes -> 64 hex chars
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlHours) * time.Hour),
	}, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
