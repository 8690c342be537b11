package graph

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const fooTokenProof = "df4256903ba4e23636cc142117aa632133d75c642bd2a68955be1443bd14deb9"

func testApp() *App { return NewApp("123", "foo_secret") }

func mustRequest(t *testing.T, app *App, token, method, endpoint string, params *Params, eTag, version string) *Request {
	t.Helper()
	req, err := NewRequest(app, token, method, endpoint, params, eTag, version)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	return req
}

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRequest_MissingAccessToken(t *testing.T) {
	req := mustRequest(t, testApp(), "", "", "", nil, "", "")
	if err := req.ValidateAccessToken(); !IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRequest_ValidateMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		wantErr string
	}{
		{"missing", "", "HTTP method not specified."},
		{"invalid", "FOO", "Invalid HTTP method specified."},
		{"lowercase get", "get", ""},
		{"delete", "DELETE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mustRequest(t, testApp(), "foo_token", tt.method, "", nil, "", "")
			err := req.ValidateMethod()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRequest_HeadersAppendETag(t *testing.T) {
	req := mustRequest(t, testApp(), "", "GET", "/foo", nil, "fooETag", "")
	headers := req.Headers()
	if got, _ := headers.Get("If-None-Match"); got != "fooETag" {
		t.Errorf("If-None-Match = %q", got)
	}
	if got, _ := headers.Get("User-Agent"); got != UserAgent {
		t.Errorf("User-Agent = %q", got)
	}
	if got, _ := headers.Get("Accept-Encoding"); got != "*" {
		t.Errorf("Accept-Encoding = %q", got)
	}
}

func TestRequest_ParamsAppendTokenAndProof(t *testing.T) {
	req := mustRequest(t, testApp(), "foo_token", "POST", "/foo", ParamsOf("foo", "bar"), "", "")
	params := req.Params()
	want := []string{"foo", "access_token", "appsecret_proof"}
	if got := params.Keys(); !slices.Equal(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if proof, _ := params.Get("appsecret_proof"); proof != fooTokenProof {
		t.Errorf("appsecret_proof = %v", proof)
	}
	// Proof is recomputed on every call.
	if again, _ := req.Params().Get("appsecret_proof"); again != fooTokenProof {
		t.Errorf("second appsecret_proof = %v", again)
	}
}

func hmacHex(key, msg string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRequest_ProofFollowsTokenAndSecret(t *testing.T) {
	req := mustRequest(t, testApp(), "foo_token", "GET", "/foo", nil, "", "")
	if got := req.AppSecretProof(); got != hmacHex("foo_secret", "foo_token") {
		t.Fatalf("AppSecretProof() = %q", got)
	}

	req.SetAccessToken("bar_token")
	want := hmacHex("foo_secret", "bar_token")
	if want == fooTokenProof {
		t.Fatal("proofs for different tokens must differ")
	}
	params := req.Params()
	if tok, _ := params.Get("access_token"); tok != "bar_token" {
		t.Errorf("access_token = %v", tok)
	}
	if proof, _ := params.Get("appsecret_proof"); proof != want {
		t.Errorf("appsecret_proof after token change = %v, want %v", proof, want)
	}

	req.SetApp(NewApp("123", "bar_secret"))
	want = hmacHex("bar_secret", "bar_token")
	if proof, _ := req.Params().Get("appsecret_proof"); proof != want {
		t.Errorf("appsecret_proof after secret change = %v, want %v", proof, want)
	}

	req.SetAccessToken("")
	if req.Params().Has("appsecret_proof") {
		t.Error("appsecret_proof sent without a token")
	}
}

func TestRequest_TokenHarvestedFromParams(t *testing.T) {
	req := mustRequest(t, testApp(), "", "POST", "/me", ParamsOf("access_token", "bar_token"), "", "")
	if req.AccessToken() != "bar_token" {
		t.Errorf("AccessToken() = %q", req.AccessToken())
	}
	if req.params.Has("access_token") {
		t.Error("access_token must not be stored as a param")
	}
}

func TestRequest_TokenConflict(t *testing.T) {
	_, err := NewRequest(testApp(), "foo_token", "POST", "/me", ParamsOf("access_token", "bar_token"), "", "")
	if !IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	_, err = NewRequest(testApp(), "foo_token", "GET", "/me?access_token=bar_token", nil, "", "")
	if !IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError for endpoint token, got %v", err)
	}
}

func TestRequest_URL(t *testing.T) {
	get := mustRequest(t, testApp(), "foo_token", "GET", "/foo", ParamsOf("foo", "bar"), "", "")
	got, err := get.URL()
	if err != nil {
		t.Fatal(err)
	}
	want := "/foo?foo=bar&access_token=foo_token&appsecret_proof=" + fooTokenProof
	if got != want {
		t.Errorf("GET URL = %q, want %q", got, want)
	}

	post := mustRequest(t, testApp(), "foo_token", "POST", "/bar", ParamsOf("foo", "bar"), "", "v0.0")
	got, err = post.URL()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/v0.0/bar" {
		t.Errorf("POST URL = %q", got)
	}

	if _, err := mustRequest(t, testApp(), "foo_token", "", "/bar", nil, "", "").URL(); !IsConfigurationError(err) {
		t.Errorf("URL() without method: %v", err)
	}
}

func TestRequest_AuthParamsStrippedAndReapplied(t *testing.T) {
	req := mustRequest(t, testApp(), "foo_token", "GET", "/foo", ParamsOf(
		"access_token", "foo_token",
		"appsecret_proof", "bar_app_secret",
		"bar", "baz",
	), "", "")
	got, err := req.URL()
	if err != nil {
		t.Fatal(err)
	}
	want := "/foo?bar=baz&access_token=foo_token&appsecret_proof=" + fooTokenProof
	if got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestRequest_EndpointTokenStripped(t *testing.T) {
	req := mustRequest(t, testApp(), "", "GET", "/foo?limit=5&access_token=foo_token&appsecret_proof=x", nil, "", "")
	if req.Endpoint() != "/foo?limit=5" {
		t.Errorf("Endpoint() = %q", req.Endpoint())
	}
	if req.AccessToken() != "foo_token" {
		t.Errorf("AccessToken() = %q", req.AccessToken())
	}
}

func TestRequest_FilesAreMovedOutOfParams(t *testing.T) {
	path := writeTempFile(t, "foo.txt", "This is a text file used for testing. Let's dance.")
	photo, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	video, err := OpenVideoFile(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		file      *File
		wantVideo bool
	}{
		{"file", photo, false},
		{"video", video, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mustRequest(t, testApp(), "foo_token", "POST", "/foo/photos", ParamsOf(
				"name", "Foo Bar",
				"source", tt.file,
			), "", "")
			if !req.ContainsFileUploads() {
				t.Error("expected file uploads")
			}
			if req.ContainsVideoUploads() != tt.wantVideo {
				t.Errorf("ContainsVideoUploads() = %v", req.ContainsVideoUploads())
			}
			params := req.Params()
			if params.Has("source") {
				t.Error("file param must not stay in params")
			}
			if name, _ := params.Get("name"); name != "Foo Bar" {
				t.Errorf("name = %v", name)
			}
		})
	}
}

func TestRequest_SetParamsMerges(t *testing.T) {
	req := mustRequest(t, testApp(), "", "GET", "/foo", ParamsOf("a", "1", "b", "2"), "", "")
	if err := req.SetParams(ParamsOf("b", "3", "c", "4")); err != nil {
		t.Fatal(err)
	}
	got := EncodeParams(req.Params())
	if got != "a=1&b=3&c=4" {
		t.Errorf("params = %q", got)
	}
}

func TestRequest_PostParamsOnlyForPost(t *testing.T) {
	get := mustRequest(t, testApp(), "foo_token", "GET", "/foo", ParamsOf("a", "1"), "", "")
	if get.PostParams().Len() != 0 {
		t.Error("GET requests have no body params")
	}
	if body := get.URLEncodedBody().String(); body != "" {
		t.Errorf("GET body = %q", body)
	}
}

func TestRequest_CloneIsDeep(t *testing.T) {
	req := mustRequest(t, testApp(), "foo_token", "GET", "/foo", ParamsOf("a", "1"), "", "v1.0")
	clone := req.Clone()
	if err := clone.SetParams(ParamsOf("b", "2")); err != nil {
		t.Fatal(err)
	}
	if err := clone.SetEndpoint("/bar"); err != nil {
		t.Fatal(err)
	}
	if req.params.Has("b") {
		t.Error("clone shares params with original")
	}
	if req.Endpoint() != "/foo" {
		t.Errorf("original endpoint changed to %q", req.Endpoint())
	}
	if clone.AccessToken() != "foo_token" || clone.GraphVersion() != "v1.0" {
		t.Error("clone lost token or version")
	}
}
