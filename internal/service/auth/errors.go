package auth

import (
	"errors"
	"fmt"

	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// Token errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrWrongTokenType indicates an access token was used as a refresh token or vice versa
	ErrWrongTokenType = errors.New("wrong token type")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token has expired")
)

// Account errors
var (
	// ErrInvalidCredentials covers both an unknown e-mail and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmailNotVerified = errors.New("email address is not verified")
	ErrAccountDisabled  = errors.New("account is disabled")

	// ErrInvalidCode is returned for a wrong, expired or already used one-time code.
	ErrInvalidCode = errors.New("invalid or expired code")

	ErrAlreadyVerified    = fmt.Errorf("%w: email already verified", domain.ErrConflict)
	ErrAlreadyInstructor  = fmt.Errorf("%w: user is already an instructor", domain.ErrConflict)
	ErrApplicationPending = fmt.Errorf("%w: instructor application is pending", domain.ErrConflict)
	ErrNotApplicant       = fmt.Errorf("%w: user has not applied as instructor", domain.ErrConflict)
)
