package session

import "net/http"

// Code is a machine-readable failure code.
type Code string

const (
	CodeAlreadyActive             Code = "ALREADY_ACTIVE"
	CodeNoActiveSession           Code = "NO_ACTIVE_SESSION"
	CodeCapacityExceeded          Code = "CAPACITY_EXCEEDED"
	CodeHostNotFound              Code = "HOST_NOT_FOUND"
	CodeInvitationNotFound        Code = "INVITATION_NOT_FOUND"
	CodeInvitationExpired         Code = "INVITATION_EXPIRED"
	CodeInvitationAlreadyResolved Code = "INVITATION_ALREADY_RESOLVED"
	CodePermissionDenied          Code = "PERMISSION_DENIED"
	CodeInvalidArgument           Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps a code onto the status the HTTP surface answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAlreadyActive, CodeCapacityExceeded, CodeInvitationAlreadyResolved:
		return http.StatusConflict
	case CodeNoActiveSession, CodeHostNotFound, CodeInvitationNotFound:
		return http.StatusNotFound
	case CodeInvitationExpired:
		return http.StatusGone
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is an expected, recoverable coordinator failure.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrAlreadyActive             = &Error{Code: CodeAlreadyActive, Message: "a session is already active"}
	ErrNoActiveSession           = &Error{Code: CodeNoActiveSession, Message: "no active session"}
	ErrCapacityExceeded          = &Error{Code: CodeCapacityExceeded, Message: "session host capacity exceeded"}
	ErrHostNotFound              = &Error{Code: CodeHostNotFound, Message: "host not found"}
	ErrInvitationNotFound        = &Error{Code: CodeInvitationNotFound, Message: "invitation not found"}
	ErrInvitationExpired         = &Error{Code: CodeInvitationExpired, Message: "invitation expired"}
	ErrInvitationAlreadyResolved = &Error{Code: CodeInvitationAlreadyResolved, Message: "invitation already resolved"}
	ErrPermissionDenied          = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	ErrInvalidArgument           = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

func newError(base *Error, message string, kv ...string) *Error {
	e := &Error{Code: base.Code, Message: base.Message}
	if message != "" {
		e.Message = base.Message + ": " + message
	}
	if len(kv) > 1 {
		e.Metadata = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Metadata[kv[i]] = kv[i+1]
		}
	}
	return e
}
