package graph

import (
	"strings"
)

var allowedMethods = []string{"GET", "POST", "DELETE"}

// Request describes a single Graph API call.
//
// access_token and appsecret_proof are never stored as params; they are
// derived from the request's token each time Params is called.
type Request struct {
	app          *App
	accessToken  string
	method       string
	endpoint     string
	headers      *Collection[string]
	params       *Params
	files        *Collection[*File]
	eTag         string
	graphVersion string
}

// NewRequest builds a request. Any access_token found in the endpoint query
// or params is harvested into the request token.
func NewRequest(app *App, accessToken, method, endpoint string, params *Params, eTag, graphVersion string) (*Request, error) {
	r := &Request{
		app:          app,
		accessToken:  accessToken,
		headers:      NewCollection[string](),
		params:       NewParams(),
		files:        NewCollection[*File](),
		eTag:         eTag,
		graphVersion: graphVersion,
	}
	r.SetMethod(method)
	if err := r.SetEndpoint(endpoint); err != nil {
		return nil, err
	}
	if err := r.SetParams(params); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Request) App() *App            { return r.app }
func (r *Request) SetApp(app *App)      { r.app = app }
func (r *Request) AccessToken() string  { return r.accessToken }
func (r *Request) Method() string       { return r.method }
func (r *Request) Endpoint() string     { return r.endpoint }
func (r *Request) ETag() string         { return r.eTag }
func (r *Request) SetETag(eTag string)  { r.eTag = eTag }
func (r *Request) GraphVersion() string { return r.graphVersion }

// Files returns the attached files keyed by param name.
func (r *Request) Files() *Collection[*File] { return r.files }

// SetAccessToken replaces the request token.
func (r *Request) SetAccessToken(token string) {
	r.accessToken = token
}

// AccessTokenEntity returns the token as an *AccessToken, or nil.
func (r *Request) AccessTokenEntity() *AccessToken {
	if r.accessToken == "" {
		return nil
	}
	return NewAccessToken(r.accessToken)
}

// setAccessTokenFromParams adopts token unless a different one is already set.
func (r *Request) setAccessTokenFromParams(token string) error {
	switch {
	case r.accessToken == "":
		r.accessToken = token
	case r.accessToken != token:
		return configError("Access token mismatch. The access token provided in the Request and the one provided in the URL or POST params do not match.")
	}
	return nil
}

// AppSecretProof returns the proof for the current token, or "" without one.
func (r *Request) AppSecretProof() string {
	if r.accessToken == "" {
		return ""
	}
	var secret string
	if r.app != nil {
		secret = r.app.Secret()
	}
	return AppSecretProof(r.accessToken, secret)
}

// ValidateAccessToken fails when no token is set.
func (r *Request) ValidateAccessToken() error {
	if r.accessToken == "" {
		return configError("You must provide an access token.")
	}
	return nil
}

// SetMethod stores method in upper case. An empty method is ignored.
func (r *Request) SetMethod(method string) {
	if method != "" {
		r.method = strings.ToUpper(method)
	}
}

// ValidateMethod fails unless the method is GET, POST or DELETE.
func (r *Request) ValidateMethod() error {
	if r.method == "" {
		return configError("HTTP method not specified.")
	}
	for _, m := range allowedMethods {
		if r.method == m {
			return nil
		}
	}
	return configError("Invalid HTTP method specified.")
}

// SetEndpoint stores endpoint after harvesting and removing access_token and
// appsecret_proof from its query.
func (r *Request) SetEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}
	if v, ok := ParamsFromURL(endpoint).Get("access_token"); ok {
		if token, _ := toString(v); token != "" {
			if err := r.setAccessTokenFromParams(token); err != nil {
				return err
			}
		}
	}
	r.endpoint = RemoveParamsFromURL(endpoint, "access_token", "appsecret_proof")
	return nil
}

// Headers returns the custom headers followed by the defaults, which win.
func (r *Request) Headers() *Collection[string] {
	out := r.headers.Clone()
	for k, v := range DefaultHeaders().All() {
		out.Set(k, v)
	}
	if r.eTag != "" {
		out.Set("If-None-Match", r.eTag)
	}
	return out
}

// SetHeaders merges headers over the existing custom headers.
func (r *Request) SetHeaders(headers *Collection[string]) {
	r.headers.Merge(headers)
}

// DefaultHeaders are sent with every request.
func DefaultHeaders() *Collection[string] {
	h := NewCollection[string]()
	h.Set("User-Agent", UserAgent)
	h.Set("Accept-Encoding", "*")
	return h
}

// SetParams merges params into the request. access_token is harvested,
// appsecret_proof dropped and *File values moved to the attachments.
func (r *Request) SetParams(params *Params) error {
	if params.Len() == 0 {
		return nil
	}
	params = params.Clone()
	if v, ok := params.Get("access_token"); ok && v != nil {
		if token, _ := toString(v); token != "" {
			if err := r.setAccessTokenFromParams(token); err != nil {
				return err
			}
		}
	}
	params.Delete("access_token")
	params.Delete("appsecret_proof")
	r.DangerouslySetParams(r.sanitizeFileParams(params))
	return nil
}

// DangerouslySetParams merges params without any filtering.
func (r *Request) DangerouslySetParams(params *Params) {
	r.params.Merge(params)
}

func (r *Request) sanitizeFileParams(params *Params) *Params {
	for _, k := range params.Keys() {
		v, _ := params.Get(k)
		if f, ok := v.(*File); ok {
			r.AddFile(k, f)
			params.Delete(k)
		}
	}
	return params
}

// AddFile attaches f under the param name key.
func (r *Request) AddFile(key string, f *File) {
	r.files.Set(key, f)
}

// ResetFiles drops all attachments.
func (r *Request) ResetFiles() {
	r.files = NewCollection[*File]()
}

// ContainsFileUploads reports whether any file is attached.
func (r *Request) ContainsFileUploads() bool {
	return r.files.Len() > 0
}

// ContainsVideoUploads reports whether any attached file is a video.
func (r *Request) ContainsVideoUploads() bool {
	for _, f := range r.files.All() {
		if f.IsVideo() {
			return true
		}
	}
	return false
}

// Params returns the stored params plus access_token and appsecret_proof
// when a token is set.
func (r *Request) Params() *Params {
	params := r.params.Clone()
	if r.accessToken != "" {
		params.Set("access_token", r.accessToken)
		params.Set("appsecret_proof", r.AppSecretProof())
	}
	return params
}

// PostParams returns Params for POST requests and nothing otherwise.
func (r *Request) PostParams() *Params {
	if r.method == "POST" {
		return r.Params()
	}
	return NewParams()
}

// MultipartBody returns the POST params and files as multipart form data.
func (r *Request) MultipartBody() *MultipartBody {
	return NewMultipartBody(r.PostParams(), r.files.Clone())
}

// URLEncodedBody returns the POST params form-encoded.
func (r *Request) URLEncodedBody() *URLEncodedBody {
	return &URLEncodedBody{Params: r.PostParams()}
}

// URL returns "/version/endpoint", with params in the query unless the
// method is POST.
func (r *Request) URL() (string, error) {
	if err := r.ValidateMethod(); err != nil {
		return "", err
	}
	u := ForceSlashPrefix(r.graphVersion) + ForceSlashPrefix(r.endpoint)
	if r.method != "POST" {
		u = AppendParamsToURL(u, r.Params())
	}
	return u, nil
}

// Clone returns a deep copy that shares only the app credentials.
func (r *Request) Clone() *Request {
	c := *r
	c.headers = r.headers.Clone()
	c.params = r.params.Clone()
	c.files = r.files.Clone()
	return &c
}
