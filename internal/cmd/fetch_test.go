package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchKeepsOrder(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/v12.0/4", jsonResponse(200, `{"id":"4","name":"Mark"}`)).
		On("GET", "/v12.0/5", jsonResponse(200, `{"id":"5","name":"Chris"}`)).
		On("GET", "/v12.0/6", jsonResponse(200, `{"id":"6"}`))
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "fetch", "6", "4", "--ids", "5", "--fields", "id,name", "-o", "json")
	require.NoError(t, err)

	items := decodeItems(t, out)
	require.Len(t, items, 3)
	for i, want := range []string{"6", "4", "5"} {
		assert.Equal(t, want, items[i]["id"])
		assert.Equal(t, true, items[i]["success"])
	}
	node, _ := items[1]["node"].(map[string]any)
	assert.Equal(t, "Mark", node["name"])

	for _, r := range handler.Requests() {
		assert.Equal(t, "id,name", r.URL.Query().Get("fields"))
	}
}

func TestFetchPartialFailure(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/v12.0/1", jsonResponse(200, `{"id":"1","name":"Ok"}`))
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "fetch", "1", "404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 fetches failed")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "ok")
	assert.Contains(t, lines[1], "Ok")
	assert.Contains(t, lines[2], "error")
}

func TestFetchValidation(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	_, _, err := runCmd(t, "", "fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one ID")

	_, _, err = runCmd(t, "", "fetch", "1", "--concurrency", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--concurrency")
}

func TestFetchDryRun(t *testing.T) {
	handler := newRouteHandler()
	setupTestEnvWithHandler(t, handler)

	out, _, err := runCmd(t, "", "fetch", "1", "2", "--dry-run")
	require.NoError(t, err)
	assert.Empty(t, handler.Requests())
	assert.Equal(t, 2, strings.Count(out, "[DRY-RUN] Would send GET"))
	assert.NotContains(t, out, testToken)
}
