// Package errs defines the error taxonomy shared by the cloud services.
//
// User-attributable errors are sentinel values that surface to callers
// unchanged. Internal failures are wrapped in an InternalError carrying a
// correlation id; external clients only ever see "internal error" plus the
// id, while the full cause is logged server-side.
package errs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Not-found errors.
var (
	ErrProjectNotFound     = errors.New("project not found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrInviteNotFound      = errors.New("invitation not found")
	ErrGroupNotFound       = errors.New("group not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrServiceHostNotFound = errors.New("service host not found")
	ErrThumbnailNotFound   = errors.New("thumbnail not found")
)

// Conflict errors.
var (
	ErrGroupExists              = errors.New("group already exists")
	ErrInviteExists             = errors.New("invitation already exists")
	ErrHostAlreadyAuthorized    = errors.New("service host already authorized")
)

// Precondition errors.
var (
	ErrCannotDeleteLastRole = errors.New("cannot delete the last role of a project")
	ErrInvalidName          = errors.New("invalid name")
)

// ErrForbidden is raised by the capability layer; the core never decides
// policy, it only propagates the refusal.
var ErrForbidden = errors.New("forbidden")

var userErrors = []error{
	ErrProjectNotFound,
	ErrRoleNotFound,
	ErrInviteNotFound,
	ErrGroupNotFound,
	ErrUserNotFound,
	ErrServiceHostNotFound,
	ErrThumbnailNotFound,
	ErrGroupExists,
	ErrInviteExists,
	ErrHostAlreadyAuthorized,
	ErrCannotDeleteLastRole,
	ErrInvalidName,
	ErrForbidden,
}

// IsUserError reports whether err is user-attributable and safe to return
// to the caller verbatim.
func IsUserError(err error) bool {
	for _, sentinel := range userErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// InternalError wraps an unexpected failure with a correlation id for log
// lookup. The message shown to clients never includes the cause.
type InternalError struct {
	Kind          string
	CorrelationID string
	Err           error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error (%s): %s", e.CorrelationID, e.Kind)
}

func (e *InternalError) Unwrap() error { return e.Err }

func internal(kind string, err error) error {
	return &InternalError{Kind: kind, CorrelationID: uuid.NewString(), Err: err}
}

// Store wraps a metadata store failure.
func Store(err error) error { return internal("store unavailable", err) }

// Blob wraps a blob store failure.
func Blob(err error) error { return internal("blob store unavailable", err) }

// ThumbnailDecode wraps a thumbnail image decode failure.
func ThumbnailDecode(err error) error { return internal("thumbnail decode", err) }

// ThumbnailEncode wraps a thumbnail image encode failure.
func ThumbnailEncode(err error) error { return internal("thumbnail encode", err) }

// Base64Decode wraps a base64 decode failure.
func Base64Decode(err error) error { return internal("base64 decode", err) }

// Invariant wraps a violated internal invariant.
func Invariant(err error) error { return internal("invariant violation", err) }
