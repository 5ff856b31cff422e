package model

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Session related errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")

	ErrTokenStore = errors.New("token store unavailable")

	ErrInvalidInput = errors.New("invalid input")
)
