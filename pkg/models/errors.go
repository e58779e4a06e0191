// API error taxonomy shared between services and the HTTP layer.
package models

import (
	"errors"
	"net/http"
)

// ErrorKind is the machine-checkable classification carried by every error
// response. Raw transport or provider errors are always reclassified at the
// component boundary before they reach a client.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindNotFound          ErrorKind = "not_found"
	KindNoCompatibleFiles ErrorKind = "no_compatible_files"
	KindRemoteFailure     ErrorKind = "remote_failure"
	KindNoResponseFound   ErrorKind = "no_response_found"
	KindTimeout           ErrorKind = "timeout"
	KindTotalBatchFailure ErrorKind = "total_batch_failure"
	KindInternal          ErrorKind = "internal_error"
)

// APIError pairs a kind with a human-readable detail string.
type APIError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *APIError) Error() string {
	return string(e.Kind) + ": " + e.Detail
}

// NewAPIError builds an APIError of the given kind.
func NewAPIError(kind ErrorKind, detail string) *APIError {
	return &APIError{Kind: kind, Detail: detail}
}

// AsAPIError extracts an APIError from err's chain, wrapping unclassified
// errors as internal so nothing raw leaks to a client.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Kind: KindInternal, Detail: err.Error()}
}

// HTTPStatus maps an error kind onto a response status code.
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindNoCompatibleFiles:
		return http.StatusUnprocessableEntity
	case KindRemoteFailure, KindTotalBatchFailure:
		return http.StatusBadGateway
	case KindNoResponseFound:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON envelope for error replies.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}
