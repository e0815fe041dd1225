package services

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/moms/internal/cache"
	"github.com/fathima-sithara/moms/internal/cart"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
)

var (
	ErrNotAuthorized       = errors.New("this phone number is not linked to any house, ask your house admin to add it")
	ErrInvalidCredentials  = errors.New("invalid phone number or password")
	ErrTooManyAttempts     = errors.New("too many failed attempts, please try again later")
	ErrPhoneRegistered     = errors.New("this phone number is already registered")
	ErrWeakPassword        = errors.New("password is too short")
	ErrNotRegistered       = errors.New("complete registration to continue")
	ErrAccountSuspended    = errors.New("this account has been suspended")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrMealClosed          = errors.New("ordering is closed for this meal")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInternal            = errors.New("internal server error")
)

const (
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodePhoneRegistered    = "PHONE_REGISTERED"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeNotRegistered      = "NOT_REGISTERED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION"
	CodeMealClosed         = "MEAL_CLOSED"
	CodeInternal           = "INTERNAL"
)

// ValidationError is a business rule violation the caller can fix.
type ValidationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMealClosed) match meal-closed violations.
func (e *ValidationError) Is(target error) bool {
	return target == ErrMealClosed && e.Code == CodeMealClosed
}

func invalid(msg string) error {
	return &ValidationError{Code: CodeValidation, Message: msg}
}

func mealClosed(mt models.MealType, cause error) error {
	return &ValidationError{Code: CodeMealClosed, Message: mt.Label() + ": " + cause.Error(), Err: cause}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CodeOf returns the client-facing code for err. Anything unrecognized is
// INTERNAL.
func CodeOf(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Code
	case errors.Is(err, ErrNotAuthorized):
		return CodeNotAuthorized
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidRefreshToken):
		return CodeInvalidCredentials
	case errors.Is(err, ErrTooManyAttempts):
		return CodeTooManyAttempts
	case errors.Is(err, ErrPhoneRegistered):
		return CodePhoneRegistered
	case errors.Is(err, ErrWeakPassword):
		return CodeWeakPassword
	case errors.Is(err, ErrNotRegistered):
		return CodeNotRegistered
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAccountSuspended):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrMealClosed):
		return CodeMealClosed
	case errors.Is(err, ErrInvalidTransition):
		return CodeValidation
	}
	return CodeInternal
}

// PublicMessage is the text shown to clients for err. Internal failures are
// not described.
func PublicMessage(err error) string {
	if CodeOf(err) == CodeInternal {
		return ErrInternal.Error()
	}
	return err.Error()
}

// Clock returns the current time. Services convert it to the service
// timezone themselves.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// LoginLimiter counts failed sign-ins per credential identifier.
type LoginLimiter interface {
	Locked(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// CartStore persists one cart per session key.
type CartStore interface {
	Get(ctx context.Context, key string) (*cart.Cart, error)
	Save(ctx context.Context, key string, c *cart.Cart) error
	Delete(ctx context.Context, key string) error
}

// RefreshTokenStore remembers the current refresh token of each session.
type RefreshTokenStore interface {
	Save(ctx context.Context, sessionID, userID, refreshToken string, ttl time.Duration) error
	Lookup(ctx context.Context, sessionID string) (*cache.SessionRecord, error)
	Rotate(ctx context.Context, sessionID, oldToken, newToken string, ttl time.Duration) error
	Revoke(ctx context.Context, sessionID string) error
}

func conflict(what string) error {
	return &ValidationError{Code: CodeValidation, Message: what + " was changed by someone else, reload and try again", Err: repository.ErrConflict}
}
