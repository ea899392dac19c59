package utils

import "crypto/rand"

// codeAlphabet is the 32-symbol set used for redemption codes.  It leaves
// out 0, O, 1 and I so codes shown on receipts cannot be misread.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RedemptionCodeLength is the fixed length of generated redemption codes.
const RedemptionCodeLength = 8

// NewRedemptionCode returns an 8-character code drawn uniformly from
// codeAlphabet using crypto/rand.  Codes are not checked for collisions
// against existing rows; with 32^8 possible values the chance of a clash
// is accepted.
func NewRedemptionCode() (string, error) {
	buf := make([]byte, RedemptionCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, RedemptionCodeLength)
	for i, b := range buf {
		// 32 symbols divide 256 evenly, so the modulo keeps the draw uniform.
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
