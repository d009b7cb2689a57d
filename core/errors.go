package core

import "errors"

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidAddress    = errors.New("invalid ethereum address")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrMessageMismatch   = errors.New("message does not match issued challenge")
	ErrAddressMismatch   = errors.New("recovered address does not match claimed address")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists for wallet")
	ErrStoreUnavailable  = errors.New("backing store unavailable")
)
