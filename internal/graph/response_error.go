package graph

import "fmt"

// ErrorKind classifies a Graph API error.
type ErrorKind string

const (
	KindAuthentication  ErrorKind = "authentication"
	KindAuthorization   ErrorKind = "authorization"
	KindThrottle        ErrorKind = "throttle"
	KindServer          ErrorKind = "server"
	KindClient          ErrorKind = "client"
	KindResumableUpload ErrorKind = "resumable_upload"
	KindOther           ErrorKind = "other"
)

const unknownGraphError = "Unknown error from Graph."

// ResponseError is an error payload returned by the Graph API.
type ResponseError struct {
	Kind       ErrorKind
	Code       int
	SubCode    int
	Type       string
	Message    string
	HTTPStatus int
	RawBody    string
	// Data is the "error" object of the response.
	Data *Object

	response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("graph %s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// Response returns the response that carried the error.
func (e *ResponseError) Response() *Response { return e.response }

// Retryable reports whether the caller may retry the request as is.
func (e *ResponseError) Retryable() bool {
	return e.Kind == KindThrottle || e.Kind == KindServer || e.Kind == KindResumableUpload
}

var subcodeKinds = map[int]ErrorKind{
	458: KindAuthentication, 459: KindAuthentication, 460: KindAuthentication,
	463: KindAuthentication, 464: KindAuthentication, 467: KindAuthentication,

	1363030: KindResumableUpload, 1363019: KindResumableUpload, 1363037: KindResumableUpload,
	1363033: KindResumableUpload, 1363021: KindResumableUpload, 1363041: KindResumableUpload,
}

var codeKinds = map[int]ErrorKind{
	100: KindAuthentication, 102: KindAuthentication, 190: KindAuthentication,
	1: KindServer, 2: KindServer,
	4: KindThrottle, 17: KindThrottle, 32: KindThrottle, 341: KindThrottle, 613: KindThrottle,
	506: KindClient,
}

// ClassifyError returns the kind of an error with the given code, subcode
// and type. A subcode of -1 means none.
func ClassifyError(code, subcode int, errType string) ErrorKind {
	if kind, ok := subcodeKinds[subcode]; ok {
		return kind
	}
	if kind, ok := codeKinds[code]; ok {
		return kind
	}
	if code == 10 || (code >= 200 && code <= 299) {
		return KindAuthorization
	}
	if errType == "OAuthException" {
		return KindAuthentication
	}
	return KindOther
}

func newResponseError(resp *Response) *ResponseError {
	body := resp.DecodedBody()
	errData, ok := body.Get("error")
	errObj, isObj := errData.(*Object)
	if !ok || !isObj || !errObj.Has("code") {
		if body.Has("code") {
			errObj = body
		}
	}
	if errObj == nil {
		errObj = NewObject()
	}

	e := &ResponseError{
		Code:       -1,
		SubCode:    -1,
		Message:    unknownGraphError,
		HTTPStatus: resp.HTTPStatus(),
		RawBody:    resp.Body(),
		Data:       errObj,
		response:   resp,
	}
	if v, ok := errObj.Get("code"); ok {
		if n, ok := toInt(v); ok {
			e.Code = n
		}
	}
	if v, ok := errObj.Get("error_subcode"); ok {
		if n, ok := toInt(v); ok {
			e.SubCode = n
		}
	}
	if v, ok := errObj.Get("message"); ok {
		if s, ok := v.(string); ok {
			e.Message = s
		}
	}
	if v, ok := errObj.Get("type"); ok {
		if s, ok := v.(string); ok {
			e.Type = s
		}
	}
	e.Kind = ClassifyError(e.Code, e.SubCode, e.Type)
	return e
}
