// Package apperr defines the error taxonomy shared by the storage, service and
// transport layers.
//
// Every error that crosses the service boundary is either an *Error or is treated
// as KindInternal. Messages on Validation, NotFound and Authorization errors are
// client-safe and are returned verbatim; internal errors are logged and replaced
// with a generic message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an Error.
type Kind int

const (
	// KindInternal is the fallback for unexpected failures.
	KindInternal Kind = iota
	// KindValidation is a malformed or missing input field.
	KindValidation
	// KindNotFound is a referenced Member, Group or Order that is missing or soft-deleted.
	KindNotFound
	// KindAuthorization covers wrong passwords, closed groups, duplicate membership
	// and acting on resources the requester does not own.
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	default:
		return "internal"
	}
}

// InternalMessage is the only message clients see for KindInternal errors.
const InternalMessage = "Looks like an error on our side. Sorry about that!"

// Error is a categorized error with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel errors for the join-group and order ownership rules.
var (
	ErrGroupClosed = &Error{
		Kind:    KindAuthorization,
		Message: "This Group is marked as 'closed' meaning no new Members are able to join at this time.",
	}
	ErrIncorrectGroupPassword = &Error{
		Kind:    KindAuthorization,
		Message: "Group password is incorrect, unable to join Group.",
	}
	ErrAlreadyInGroup = &Error{
		Kind:    KindAuthorization,
		Message: "Member already belongs to Group.",
	}
	ErrNotOrderCreator = &Error{
		Kind:    KindAuthorization,
		Message: "Users can only update Orders they created.",
	}
	ErrUnverifiableRequester = &Error{
		Kind:    KindAuthorization,
		Message: "Unable to verify who is making this request.",
	}
)

// Validation returns a KindValidation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// InvalidField returns the standard message for a bad request field.
func InvalidField(field string) *Error {
	return Validation(fmt.Sprintf("'%s' field is invalid.", field))
}

// NotFound returns a KindNotFound error for the given resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with ID %q could not be found.", resource, id),
	}
}

// Forbidden returns a KindAuthorization error.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Op: op, Err: err}
}

// KindOf reports the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is a categorized error of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// ClientMessage returns the message that may be shown to the caller.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return InternalMessage
}

// HTTPStatus maps err to a status code for write routes: every client-caused
// failure is a 400.
func HTTPStatus(err error) int {
	if KindOf(err) == KindInternal {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// ReadHTTPStatus maps err to a status code for read routes, where a missing
// resource is a 404.
func ReadHTTPStatus(err error) int {
	if KindOf(err) == KindNotFound {
		return http.StatusNotFound
	}
	return HTTPStatus(err)
}
