package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable error category.
type ErrorCode string

const (
	ErrConfiguration   ErrorCode = "configuration"
	ErrUnexpectedShape ErrorCode = "unexpected_shape"
	ErrPagination      ErrorCode = "pagination"
	ErrBatchSize       ErrorCode = "batch_size"
	ErrSignedRequest   ErrorCode = "signed_request"
	ErrUpload          ErrorCode = "upload"
	ErrUnauthorized    ErrorCode = "unauthorized"
	ErrForbidden       ErrorCode = "forbidden"
	ErrRateLimited     ErrorCode = "rate_limited"
	ErrServerError     ErrorCode = "server_error"
	ErrBadRequest      ErrorCode = "bad_request"
	ErrUploadRejected  ErrorCode = "upload_rejected"
	ErrGraph           ErrorCode = "graph_error"
	ErrNetwork         ErrorCode = "network"
	ErrUnknown         ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed on retry.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrServerError, ErrNetwork, ErrUploadRejected:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable hint for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case ErrConfiguration:
		return "Check the app credentials, access token and HTTP method"
	case ErrUnauthorized:
		return "Obtain a fresh access token, e.g. with 'graph login url'"
	case ErrForbidden:
		return "Request the missing permission for this token"
	case ErrRateLimited:
		return "Wait before sending more requests"
	case ErrServerError:
		return "Graph reported a temporary failure; try again later"
	case ErrBatchSize:
		return fmt.Sprintf("Send between 1 and %d requests per batch", MaxBatchSize)
	case ErrUnexpectedShape:
		return "Decode the response with --edge or a different --as type"
	case ErrNetwork:
		return "Check network connectivity and retry"
	default:
		return ""
	}
}

func errorCodeForKind(kind ErrorKind) ErrorCode {
	switch kind {
	case KindAuthentication:
		return ErrUnauthorized
	case KindAuthorization:
		return ErrForbidden
	case KindThrottle:
		return ErrRateLimited
	case KindServer:
		return ErrServerError
	case KindClient:
		return ErrBadRequest
	case KindResumableUpload:
		return ErrUploadRejected
	default:
		return ErrGraph
	}
}

// StructuredError is the machine-readable form of an SDK error.
type StructuredError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// MarshalJSON implements custom JSON marshaling.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	type Alias StructuredError
	return json.Marshal((*Alias)(e))
}

// NewStructuredError creates a StructuredError from a code and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// StructuredErrorFromError converts any error to a StructuredError.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		out := NewStructuredError(errorCodeForKind(respErr.Kind), respErr.Message)
		out.Context = map[string]any{
			"graph_code": respErr.Code,
			"kind":       string(respErr.Kind),
		}
		if respErr.SubCode != -1 {
			out.Context["graph_subcode"] = respErr.SubCode
		}
		if respErr.Type != "" {
			out.Context["type"] = respErr.Type
		}
		if respErr.HTTPStatus != 0 {
			out.Context["status_code"] = respErr.HTTPStatus
		}
		return out
	}

	var (
		cfgErr    *ConfigurationError
		shapeErr  *ShapeError
		pageErr   *PaginationError
		batchErr  *BatchSizeError
		signedErr *SignedRequestError
		uploadErr *UploadError
		authErr   *AuthError
		netErr    *TransportError
	)
	switch {
	case errors.As(err, &cfgErr):
		return NewStructuredError(ErrConfiguration, cfgErr.Message)
	case errors.As(err, &shapeErr):
		return NewStructuredError(ErrUnexpectedShape, shapeErr.Message)
	case errors.As(err, &pageErr):
		return NewStructuredError(ErrPagination, pageErr.Error())
	case errors.As(err, &batchErr):
		out := NewStructuredError(ErrBatchSize, batchErr.Error())
		out.Context = map[string]any{"count": batchErr.Count}
		return out
	case errors.As(err, &signedErr):
		out := NewStructuredError(ErrSignedRequest, signedErr.Message)
		out.Context = map[string]any{"sdk_code": signedErr.Code}
		return out
	case errors.As(err, &uploadErr):
		out := NewStructuredError(ErrUpload, uploadErr.Error())
		out.Context = map[string]any{"path": uploadErr.Path}
		return out
	case errors.As(err, &authErr):
		out := NewStructuredError(ErrUnauthorized, authErr.Message)
		if authErr.Code != 0 {
			out.Context = map[string]any{"sdk_code": authErr.Code}
		}
		return out
	case errors.As(err, &netErr):
		return NewStructuredError(ErrNetwork, netErr.Error())
	}
	return NewStructuredError(ErrUnknown, err.Error())
}
