package cmd

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/resolve"
)

func TestGetNodeText(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/v12.0/me", jsonResponse(200, `{"id":"1","name":"Ada Lovelace","birthday":"12/10/1815"}`))
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "get", "/me", "--fields", "id, name")
	require.NoError(t, err)

	assert.Contains(t, out, "name")
	assert.Contains(t, out, "Ada Lovelace")

	reqs := handler.Requests()
	require.Len(t, reqs, 1)
	q := reqs[0].URL.Query()
	assert.Equal(t, "id,name", q.Get("fields"))
	assert.Equal(t, testToken, q.Get("access_token"))
	assert.Equal(t, graph.AppSecretProof(testToken, testAppSecret), q.Get("appsecret_proof"))
}

func TestGetNodeJSON(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/v12.0/123", jsonResponse(200, `{"id":"123","created_time":"2014-07-15T03:54:34+0000","from":{"id":"9","name":"Bob"}}`))
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "get", "/123", "-o", "json")
	require.NoError(t, err)

	got := decodeJSON(t, out)
	assert.Equal(t, "123", got["id"])
	from, ok := got["from"].(map[string]any)
	require.True(t, ok, "nested object should stay an object: %v", got["from"])
	assert.Equal(t, "Bob", from["name"])
	assert.NotEmpty(t, got["created_time"])
}

func TestGetEdge(t *testing.T) {
	body := `{"data":[{"id":"1","name":"Ann"},{"id":"2","name":"Ben"}],"paging":{"cursors":{"before":"a","after":"b"}}}`
	handler := newRouteHandler().On("GET", "/v12.0/me/friends", jsonResponse(200, body))
	setupTestEnvWithHandler(t, handler)

	t.Run("text table", func(t *testing.T) {
		out, _, err := runCmd(t, "", "get", "/me/friends", "--edge", "--as", "graphuser")
		require.NoError(t, err)
		assert.Contains(t, out, "ID")
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "Ann")
		assert.Contains(t, out, "Ben")
	})

	t.Run("json list", func(t *testing.T) {
		out, _, err := runCmd(t, "", "get", "/me/friends", "-o", "json")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "edges are wrapped as items: %s", out)
		items := decodeItems(t, out)
		require.Len(t, items, 2)
		assert.Equal(t, "Ben", items[1]["name"])
	})

	t.Run("jsonl", func(t *testing.T) {
		out, _, err := runCmd(t, "", "get", "/me/friends", "-o", "jsonl")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Len(t, lines, 2)
	})

	t.Run("jq", func(t *testing.T) {
		out, _, err := runCmd(t, "", "get", "/me/friends", "--jq", ".items[0].name")
		require.NoError(t, err)
		assert.Equal(t, `"Ann"`, strings.TrimSpace(out))
	})
}

func TestGetEdgeOnNodeFails(t *testing.T) {
	handler := newRouteHandler().On("GET", "/v12.0/me", jsonResponse(200, `{"id":"1"}`))
	setupTestEnvWithHandler(t, handler)

	_, errOut, err := runCmd(t, "", "get", "/me", "--edge")
	require.Error(t, err)
	assert.True(t, graph.IsShapeError(err))
	assert.Contains(t, errOut, "Unexpected response shape")
	assert.Equal(t, exitNotFound, ExitCode(err))
}

func TestGetUnknownNodeType(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	_, errOut, err := runCmd(t, "", "get", "/me", "--as", "GraphUsr")
	require.Error(t, err)

	var nf *resolve.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "GraphUser", nf.Suggestion)
	assert.Contains(t, errOut, "GraphUser")
}

func TestGetGraphError(t *testing.T) {
	handler := newRouteHandler().On("GET", "/v12.0/me",
		jsonResponse(400, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190,"error_subcode":463}}`))
	setupTestEnvWithHandler(t, handler)

	t.Run("text", func(t *testing.T) {
		_, errOut, err := runCmd(t, "", "get", "/me")
		require.Error(t, err)
		assert.Equal(t, exitAuth, ExitCode(err))
		assert.Contains(t, errOut, "code 190")
		assert.Contains(t, errOut, "subcode 463")
		assert.Contains(t, errOut, "graph token inspect")
	})

	t.Run("json", func(t *testing.T) {
		_, errOut, err := runCmd(t, "", "get", "/me", "-o", "json")
		require.Error(t, err)
		got := decodeJSON(t, errOut)
		assert.Equal(t, string(graph.ErrUnauthorized), got["code"])
		ctx, _ := got["context"].(map[string]any)
		assert.EqualValues(t, 190, ctx["graph_code"])
	})
}

func TestGetNotModified(t *testing.T) {
	handler := newRouteHandler().On("GET", "/v12.0/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"abc"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		jsonResponse(200, `{"id":"1"}`)(w, r)
	})
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "get", "/me", "--etag", `"abc"`)
	require.NoError(t, err)
	assert.Contains(t, out, "Not modified")
}

func TestGetInclude(t *testing.T) {
	handler := newRouteHandler().On("GET", "/v12.0/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Facebook-API-Version", "v12.0")
		jsonResponse(200, `{"id":"1"}`)(w, r)
	})
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "get", "/me", "--include", "-o", "json")
	require.NoError(t, err)
	got := decodeJSON(t, out)
	assert.EqualValues(t, 200, got["status"])
	assert.Equal(t, `"v1"`, got["etag"])
	assert.Equal(t, "v12.0", got["graph_version"])
}

func TestPostFields(t *testing.T) {
	handler := newRouteHandler().On("POST", "/v12.0/me/feed", jsonResponse(200, `{"id":"1_2"}`))
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "post", "/me/feed",
		"-f", "message=Hello there",
		"-F", "published=false",
		"-F", `targeting={"geo_locations":{"countries":["US"]}}`,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "1_2")

	reqs := handler.Requests()
	require.Len(t, reqs, 1)
	form := reqs[0].PostForm
	assert.Equal(t, "Hello there", form.Get("message"))
	assert.Equal(t, "0", form.Get("published"))
	assert.Equal(t, "US", form.Get("targeting[geo_locations][countries][0]"))
	assert.Equal(t, testToken, form.Get("access_token"))
	assert.Empty(t, reqs[0].URL.RawQuery, "POST params belong in the body")
}

func TestPostFileUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0o600))

	handler := newRouteHandler().On("POST", "/v12.0/me/photos", jsonResponse(200, `{"id":"77","post_id":"1_77"}`))
	setupTestEnvWithHandler(t, handler)

	_, _, err := runCmd(t, "", "post", "/me/photos", "-F", "source=@"+path, "-f", "caption=Lunch")
	require.NoError(t, err)

	reqs := handler.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].Header.Get("Content-Type"), "multipart/form-data"))
	require.NotNil(t, reqs[0].MultipartForm)
	assert.Equal(t, "Lunch", reqs[0].MultipartForm.Value["caption"][0])
	files := reqs[0].MultipartForm.File["source"]
	require.Len(t, files, 1)
	assert.Equal(t, "photo.jpg", files[0].Filename)
}

func TestPostMissingFile(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	_, _, err := runCmd(t, "", "post", "/me/photos", "-F", "source=@/nonexistent/photo.jpg")
	require.Error(t, err)
	var upErr *graph.UploadError
	assert.ErrorAs(t, err, &upErr)
}

func TestDelete(t *testing.T) {
	handler := newRouteHandler().On("DELETE", "/v12.0/1_2", jsonResponse(200, `true`))
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "delete", "/1_2", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, true, decodeJSON(t, out)["success"])
}

func TestRequestDryRun(t *testing.T) {
	handler := newRouteHandler()
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "post", "/me/feed", "-f", "message=hi", "--dry-run", "-o", "json")
	require.NoError(t, err)
	assert.Empty(t, handler.Requests(), "dry run must not send")

	got := decodeJSON(t, out)
	assert.Equal(t, true, got["dry_run"])
	req, _ := got["request"].(map[string]any)
	assert.Equal(t, "POST", req["method"])
	assert.Contains(t, req["url"], "/v12.0/me/feed")
	assert.Contains(t, req["body"], "message=hi")
	assert.NotContains(t, req["body"], testToken)
	assert.NotContains(t, req["body"], "appsecret_proof")
}

func TestRequestNotConfigured(t *testing.T) {
	setupKeyringEnv(t)

	_, errOut, err := runCmd(t, "", "get", "/me")
	require.Error(t, err)
	assert.Equal(t, exitUsage, ExitCode(err))
	assert.Contains(t, errOut, "graph profile save")
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in      string
		key     string
		value   string
		wantErr bool
	}{
		{"a=b", "a", "b", false},
		{"msg=x=y", "msg", "x=y", false},
		{"empty=", "empty", "", false},
		{"novalue", "", "", true},
		{"=v", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, v, err := parseField(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, k)
			assert.Equal(t, tt.value, v)
		})
	}
}

func TestParseRawField(t *testing.T) {
	t.Run("number", func(t *testing.T) {
		_, v, err := parseRawField("limit=5", false)
		require.NoError(t, err)
		assert.EqualValues(t, 5, v)
	})
	t.Run("object keeps order", func(t *testing.T) {
		_, v, err := parseRawField(`o={"z":1,"a":2}`, false)
		require.NoError(t, err)
		obj, ok := v.(*graph.Object)
		require.True(t, ok)
		assert.Equal(t, []string{"z", "a"}, obj.Keys())
	})
	t.Run("invalid json", func(t *testing.T) {
		_, _, err := parseRawField("x=nope", false)
		assert.Error(t, err)
	})
	t.Run("video file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "clip.mp4")
		require.NoError(t, os.WriteFile(path, []byte("mp4"), 0o600))
		_, v, err := parseRawField("source=@"+path, true)
		require.NoError(t, err)
		f, ok := v.(*graph.File)
		require.True(t, ok)
		assert.True(t, f.IsVideo())
	})
	t.Run("bare at", func(t *testing.T) {
		_, _, err := parseRawField("source=@", false)
		assert.Error(t, err)
	})
}

func TestGetPastedGraphURL(t *testing.T) {
	handler := newRouteHandler().On("GET", "/v18.0/me", jsonResponse(200, `{"id":"1"}`))
	setupTestEnvWithHandler(t, handler)

	_, _, err := runCmd(t, "", "get", "https://graph.facebook.com/v18.0/me?fields=id", "-o", "json")
	require.NoError(t, err)

	reqs := handler.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "id", reqs[0].URL.Query().Get("fields"))
	assert.Equal(t, testToken, reqs[0].URL.Query().Get("access_token"))
}

func TestGetPastedURLErrors(t *testing.T) {
	t.Run("foreign host", func(t *testing.T) {
		handler := newRouteHandler()
		setupTestEnvWithHandler(t, handler)

		_, _, err := runCmd(t, "", "get", "https://example.com/v18.0/me")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported host")
		assert.Empty(t, handler.Requests())
	})

	t.Run("token mismatch", func(t *testing.T) {
		handler := newRouteHandler()
		setupTestEnvWithHandler(t, handler)

		_, _, err := runCmd(t, "", "get", "https://graph.facebook.com/v18.0/me?access_token=other")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Access token mismatch")
		assert.Equal(t, exitUsage, ExitCode(err))
	})
}
