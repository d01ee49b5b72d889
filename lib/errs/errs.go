package errs

import "errors"

var ErrNotFound = errors.New("not found")

var ErrAlreadyExists = errors.New("already exists")

var ErrInternal = errors.New("internal error")

var ErrPermissionDenied = errors.New("permission denied")

// Price API.
var (
	ErrRateLimited = errors.New("price api rate limited")
	ErrFetchFailed = errors.New("failed to fetch prices")
)

// Identity.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrRequiresRecentLogin = errors.New("requires recent login")
	ErrReauthCancelled     = errors.New("re-authentication cancelled")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrWeakPassword        = errors.New("password too weak")
)

var ErrSignInRequired = errors.New("sign in required")

var ErrBusy = errors.New("operation already in progress")
