package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for workflow operations
var (
	// ErrServerOffline indicates the backend is unreachable (status 0)
	ErrServerOffline = errors.New("studio server is unreachable")

	// ErrTimeout indicates a request exceeded its deadline
	ErrTimeout = errors.New("request timed out")

	// ErrAuthFailed indicates the session token was rejected (401)
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrForbidden indicates the action is not allowed (403), e.g. already finalized
	ErrForbidden = errors.New("action is forbidden")

	// ErrNotFound indicates the gallery or step data does not exist (404)
	ErrNotFound = errors.New("requested data not found")

	// ErrGalleryMismatch indicates a gallery id outside the active session
	ErrGalleryMismatch = errors.New("gallery does not belong to the active session")

	// ErrInvalidPhotoIDs indicates every supplied photo id was rejected
	ErrInvalidPhotoIDs = errors.New("invalid photo identifiers")

	// ErrInvalidStep indicates an unknown workflow step
	ErrInvalidStep = errors.New("invalid workflow step")

	// ErrNoSession indicates no gallery is bound to the session
	ErrNoSession = errors.New("no active gallery session")

	// ErrBusy indicates another navigation or load is still in flight
	ErrBusy = errors.New("another operation is in progress")

	// ErrTransitionBlocked indicates the current state does not allow the transition
	ErrTransitionBlocked = errors.New("transition not allowed in current state")
)

// APIError is a non-2xx backend response
type APIError struct {
	Status  int
	Message string // server supplied, may be empty
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("studio api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("studio api: status %d", e.Status)
}

// Unwrap maps the status class onto a sentinel so errors.Is works
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case 0:
		return ErrServerOffline
	}
	return nil
}

// IsTransient reports whether err may succeed on retry.
// Auth, not-found, security and validation failures are never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrServerOffline) || errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return false
}

// Messages surfaced to the user for each error class
const (
	MsgGeneric      = "Something went wrong. Please try again!"
	MsgOffline      = "No internet connection."
	MsgUnauthorized = "You are not allowed to perform this action."
	MsgFinalized    = "The order has already been finalized."
	MsgNotFound     = "The requested data could not be found."
	MsgPermission   = "You do not have permission to access this gallery."
	MsgInvalidIDs   = "Invalid photo identifiers."
)

// UserMessage maps an error to a user-facing message.
// A server supplied message wins over the status based default.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrGalleryMismatch), errors.Is(err, ErrNoSession):
		return MsgPermission
	case errors.Is(err, ErrInvalidPhotoIDs):
		return MsgInvalidIDs
	case errors.Is(err, ErrServerOffline), errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return MsgOffline
	case errors.Is(err, ErrAuthFailed):
		return MsgUnauthorized
	case errors.Is(err, ErrForbidden):
		return MsgFinalized
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	}
	return MsgGeneric
}
