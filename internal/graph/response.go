package graph

import (
	"regexp"
	"strings"
)

var numericBody = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?\s*$`)

// Response is a decoded Graph API response.
type Response struct {
	request *Request
	body    []byte
	status  int
	headers *Collection[string]
	decoded *Object
	err     *ResponseError
}

// NewResponse decodes body. A nil body decodes to an empty object. When the
// decoded body has a top-level "error" key the ResponseError is built here.
func NewResponse(req *Request, body []byte, status int, headers *Collection[string]) *Response {
	if headers == nil {
		headers = NewCollection[string]()
	}
	r := &Response{request: req, body: body, status: status, headers: headers}
	r.decoded = decodeBody(body)
	if r.IsError() {
		r.err = newResponseError(r)
	}
	return r
}

func decodeBody(body []byte) *Object {
	if body == nil {
		return NewObject()
	}
	v, err := DecodeJSON(body)
	if err == nil {
		switch val := v.(type) {
		case *Object:
			return val
		case []any:
			return CollectionFromSlice(val)
		case bool:
			return ObjectOf("success", val)
		case nil:
			return NewObject()
		}
	}
	raw := string(body)
	if numericBody.MatchString(raw) {
		return ObjectOf("id", strings.TrimSpace(raw))
	}
	return ParseQuery(raw)
}

func (r *Response) Request() *Request { return r.request }

// HTTPStatus returns the status code, or 0 when unknown.
func (r *Response) HTTPStatus() int { return r.status }

func (r *Response) Headers() *Collection[string] { return r.headers }

// Body returns the raw body.
func (r *Response) Body() string { return string(r.body) }

// HasBody reports whether a body was received at all.
func (r *Response) HasBody() bool { return r.body != nil }

func (r *Response) DecodedBody() *Object { return r.decoded }

func (r *Response) AccessToken() string {
	if r.request == nil {
		return ""
	}
	return r.request.AccessToken()
}

func (r *Response) App() *App {
	if r.request == nil {
		return nil
	}
	return r.request.App()
}

func (r *Response) AppSecretProof() string {
	if r.request == nil {
		return ""
	}
	return r.request.AppSecretProof()
}

// Header returns the named header, matched case-insensitively.
func (r *Response) Header(name string) (string, bool) {
	if v, ok := r.headers.Get(name); ok {
		return v, true
	}
	for k, v := range r.headers.All() {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// ETag returns the ETag header.
func (r *Response) ETag() string {
	v, _ := r.Header("ETag")
	return v
}

// GraphVersion returns the Facebook-API-Version header.
func (r *Response) GraphVersion() string {
	v, _ := r.Header("Facebook-API-Version")
	return v
}

// IsError reports whether the decoded body has a top-level "error" key.
func (r *Response) IsError() bool {
	v, ok := r.decoded.Get("error")
	return ok && v != nil
}

// Err returns the error built at decode time, or nil.
func (r *Response) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// ResponseError returns the typed error built at decode time, or nil.
func (r *Response) ResponseError() *ResponseError { return r.err }

// Node decodes the body as a node of the given type ("" for generic).
func (r *Response) Node(typeName string) (*Node, error) {
	return NewNodeFactory(r).MakeNode(typeName)
}

// Edge decodes the body as an edge whose items have the given type.
func (r *Response) Edge(typeName string) (*Edge, error) {
	return NewNodeFactory(r).MakeEdge(typeName)
}

// Shape decodes the body as whichever of node or edge it looks like.
func (r *Response) Shape(typeName string) (Shape, error) {
	return NewNodeFactory(r).Classify(r.decoded, typeName, "", "")
}

// SessionInfo decodes the body as a GraphSessionInfo node.
func (r *Response) SessionInfo() (SessionInfo, error) {
	n, err := r.Node("GraphSessionInfo")
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{Node: n}, nil
}
