package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers deciding whether to retry,
// re-read or give up.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindStateConflict Kind = "STATE_CONFLICT"
	KindNotFound      Kind = "NOT_FOUND"
	KindStorage       Kind = "STORAGE_FAILURE"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict   = &Error{Kind: KindStateConflict, Message: "state conflict"}
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "not found"}
	ErrStorage    = &Error{Kind: KindStorage, Message: "storage failure"}
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so wrapped errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) HTTPStatus() int {
	return StatusFor(e.Kind)
}

func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindStateConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Conflict(op, format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Message: "storage failure", Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsConflict(err error) bool {
	return stderrors.Is(err, ErrConflict)
}

func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

func IsStorage(err error) bool {
	return stderrors.Is(err, ErrStorage)
}

func IsValidation(err error) bool {
	return stderrors.Is(err, ErrValidation)
}
