package auth

import "errors"

var (
	// ErrNoToken means a credential had no token to offer.
	ErrNoToken = errors.New("no token available")

	// ErrTokenExpired means a static token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)
