// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let handlers distinguish expected
// business-rule failures from infrastructure errors: a duplicate RFID at
// registration or an underfunded redemption is an expected outcome the
// caller can act on, while anything else bubbles up as an internal error.
package repository

import "errors"

// ErrRFIDExists is returned when registration is attempted with an RFID
// that is already bound to an account. Handlers translate this into 409.
var ErrRFIDExists = errors.New("rfid already registered")

// ErrUsernameExists is returned when registration is attempted with a
// username that is already taken. Handlers translate this into 409.
var ErrUsernameExists = errors.New("username already taken")

// ErrAccountNotFound is returned when an operation references an RFID
// with no point balance row, such as redeeming for an unknown account.
var ErrAccountNotFound = errors.New("account not found")

// ErrCouponNotFound is returned when a redemption names a coupon that
// does not exist or is no longer active in the catalog.
var ErrCouponNotFound = errors.New("coupon not found")
