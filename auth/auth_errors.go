package auth

import "errors"

var (
	InvalidClientIDErr    = errors.New("invalid client id")
	UserNotFoundErr       = errors.New("user not found")
	UserInactiveErr       = errors.New("user inactive")
	RefreshTokenReusedErr = errors.New("refresh token already used")
)
