package errors

import "net/http"

// HTTPError is a transport-level failure raised before a request reaches
// the domain: missing credentials, malformed JSON, out-of-scope stores.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return http.StatusText(e.Code) + ": " + e.Message
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

func ErrUnauthorized(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, msg) }

func ErrForbidden(msg string) *HTTPError { return NewHTTPError(http.StatusForbidden, msg) }

func ErrBadRequest(msg string) *HTTPError { return NewHTTPError(http.StatusBadRequest, msg) }
