package graph

import (
	"errors"
	"fmt"
)

// SDK error codes carried by the typed errors below.
const (
	CodeUnexpectedTokenData = 401
	CodeSignatureMismatch   = 602
	CodeWrongAlgorithm      = 605
	CodeMalformedSigned     = 606
	CodeUndecodableSigned   = 607
	CodeBadBase64           = 608
	CodeShape               = 620
	CodePagination          = 720
	CodeLogoutWithAppToken  = 722
)

// ConfigurationError reports caller misuse: a missing or mismatched access
// token, an invalid method, or a missing batch fallback.
type ConfigurationError struct {
	Message string
	Code    int
}

func (e *ConfigurationError) Error() string { return e.Message }

func configError(format string, args ...any) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ShapeError reports a payload that does not have the expected node or edge
// shape, or an unknown node type.
type ShapeError struct {
	Message string
}

func (e *ShapeError) Error() string { return e.Message }

// Code returns the SDK error code.
func (e *ShapeError) Code() int { return CodeShape }

// PaginationError reports pagination on an edge that did not come from a GET.
type PaginationError struct {
	Method string
}

func (e *PaginationError) Error() string {
	return "You can only paginate on a GET request."
}

// Code returns the SDK error code.
func (e *PaginationError) Code() int { return CodePagination }

// BatchSizeError reports an empty or oversized batch.
type BatchSizeError struct {
	Count int
}

func (e *BatchSizeError) Error() string {
	if e.Count == 0 {
		return "There are no batch requests to send."
	}
	return fmt.Sprintf("You cannot send more than %d batch requests at a time.", MaxBatchSize)
}

// SignedRequestError reports a signed request that failed to parse or verify.
type SignedRequestError struct {
	Message string
	Code    int
}

func (e *SignedRequestError) Error() string { return e.Message }

// UploadError reports a local file that could not be read for upload.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("Failed to create File entity. Unable to read resource: %s.", e.Path)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AuthError reports a failed OAuth step: a CSRF state mismatch, token
// metadata that does not validate, or an unexpected token response.
type AuthError struct {
	Message string
	Code    int
}

func (e *AuthError) Error() string { return e.Message }

// IsAuthError checks if err is an AuthError.
func IsAuthError(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// IsConfigurationError checks if err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsShapeError checks if err is a ShapeError.
func IsShapeError(err error) bool {
	var e *ShapeError
	return errors.As(err, &e)
}

// IsPaginationError checks if err is a PaginationError.
func IsPaginationError(err error) bool {
	var e *PaginationError
	return errors.As(err, &e)
}

// IsBatchSizeError checks if err is a BatchSizeError.
func IsBatchSizeError(err error) bool {
	var e *BatchSizeError
	return errors.As(err, &e)
}

// IsSignedRequestError checks if err is a SignedRequestError.
func IsSignedRequestError(err error) bool {
	var e *SignedRequestError
	return errors.As(err, &e)
}

// IsUploadError checks if err is an UploadError.
func IsUploadError(err error) bool {
	var e *UploadError
	return errors.As(err, &e)
}
