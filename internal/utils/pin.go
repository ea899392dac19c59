package utils

import "golang.org/x/crypto/bcrypt"

// HashPIN returns bcrypt hash of the card PIN using the given cost.
func HashPIN(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPIN compares the stored bcrypt hash against the submitted PIN.
// bcrypt comparison is constant-time with respect to the hash contents.
func VerifyPIN(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
