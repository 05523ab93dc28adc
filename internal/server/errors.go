package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/rendering"
	"github.com/jonathan/resume-analyzer/internal/storage"
)

// Caller-facing messages for failures whose details stay in the log.
const (
	MsgAnalysisFailed = "Failed to analyze resume. Please try again."
	MsgPDFFailed      = "Failed to generate PDF. Please try again."
	MsgInternal       = "Internal server error"
	MsgNotFound       = "Resume analysis not found"
	MsgForbidden      = "This feature is not available for your account"
	MsgNoRewrite      = "No rewritten resume is available for this analysis"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailTaken   *ErrEmailAlreadyExists
		badCreds     *ErrInvalidCredentials
		userNotFound *ErrUserNotFound
		validation   *analysis.ValidationError
		notFound     *analysis.NotFoundError
		forbidden    *analysis.ForbiddenError
		depMissing   *rendering.DependencyMissingError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &emailTaken):
		return http.StatusConflict
	case errors.As(err, &badCreds):
		return http.StatusUnauthorized
	case errors.As(err, &userNotFound), errors.As(err, &notFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.Is(err, storage.ErrInvalidLocator):
		return http.StatusBadRequest
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &depMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show for err. Server-side
// failures collapse to fallback, or MsgInternal when fallback is empty.
func PublicMessage(err error, fallback string) string {
	var (
		emailTaken   *ErrEmailAlreadyExists
		badCreds     *ErrInvalidCredentials
		userNotFound *ErrUserNotFound
		validation   *analysis.ValidationError
		notFound     *analysis.NotFoundError
		forbidden    *analysis.ForbiddenError
		depMissing   *rendering.DependencyMissingError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &notFound):
		return MsgNotFound
	case errors.As(err, &forbidden):
		return MsgForbidden
	case errors.As(err, &emailTaken):
		return "Email already registered"
	case errors.As(err, &badCreds):
		return badCreds.Error()
	case errors.As(err, &userNotFound):
		return "User not found"
	case errors.As(err, &depMissing):
		return depMissing.Remediation()
	case errors.Is(err, storage.ErrInvalidLocator):
		return "Invalid file reference"
	case errors.Is(err, storage.ErrNotFound):
		return "File not found"
	}
	if fallback == "" {
		return MsgInternal
	}
	return fallback
}
