package domain

import "errors"

var (
	ErrAlreadyProcessed       = errors.New("request already processed")
	ErrUserNotFound           = errors.New("user not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidInput           = errors.New("invalid input")
	ErrStoreFailure           = errors.New("store failure")
	ErrRequestNotFound        = errors.New("request not found")
	ErrDuplicateRequest       = errors.New("duplicate request")
	ErrIdempotencyKeyMismatch = errors.New("idempotency key mismatch")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("email already registered")
	ErrPriceUnavailable       = errors.New("exchange price is not available")
	ErrPINNotSet              = errors.New("withdraw password not set")
	ErrPINMismatch            = errors.New("withdraw password mismatch")
	ErrTxConflict             = errors.New("transaction conflict: too many attempts")
	ErrNotFound               = errors.New("not found")
)

type ErrorKind string

const (
	KindAlreadyProcessed    ErrorKind = "AlreadyProcessed"
	KindUserNotFound        ErrorKind = "UserNotFound"
	KindInsufficientBalance ErrorKind = "InsufficientBalance"
	KindInvalidInput        ErrorKind = "InvalidInput"
	KindStoreFailure        ErrorKind = "NetworkOrStoreFailure"
)

// Kind folds any error into one of the five ledger error categories.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		return KindAlreadyProcessed
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrPINNotSet),
		errors.Is(err, ErrPINMismatch),
		errors.Is(err, ErrIdempotencyKeyMismatch),
		errors.Is(err, ErrPriceUnavailable):
		return KindInvalidInput
	}
	return KindStoreFailure
}
