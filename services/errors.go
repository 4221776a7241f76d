package services

import "errors"

var (
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrOrderNotFound      = errors.New("order not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrPackageNotFound    = errors.New("package not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is deactivated")
)
