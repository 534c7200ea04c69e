package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateName indicates a unique-name violation on creation.
	ErrDuplicateName = errors.New("name already in use")
	// ErrIntegrityConflict indicates a delete blocked by existing references.
	ErrIntegrityConflict = errors.New("record is still referenced")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage translates domain errors into messages that can be
// rendered back to the user. Unknown errors collapse to a generic
// message so internals never leak into a page.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrDuplicateName):
		return "That name is already in use."
	case errors.Is(err, ErrIntegrityConflict):
		return "This record cannot be deleted while other records still reference it."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	default:
		return "Something went wrong. Please try again."
	}
}
