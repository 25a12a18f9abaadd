package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFakeGraph points the CLI at a fake Graph API and a temporary picture cache.
func setupFakeGraph(t *testing.T) (cacheDir string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1","name":"CLI User","first_name":"CLI"}`))
	})
	mux.HandleFunc("/42", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"42","name":"An Object"}`))
	})
	mux.HandleFunc("/me/friends", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"2","name":"Friend A"},{"id":"3","name":"Friend B"}]}`))
	})
	mux.HandleFunc("/method/users.getInfo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "access_token=tok&uids=2,3&fields=name&format=json" {
			http.Error(w, `{"error_code":100,"error_msg":"bad query"}`, http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{"uid":2,"name":"Friend A"},{"uid":3,"name":"Friend B"}]`))
	})
	mux.HandleFunc("/me/feed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.FormValue("message") != "hello there" {
			http.Error(w, `{"error":{"type":"GraphMethodException","message":"bad post"}}`, http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"id":"1_99"}`))
	})
	mux.HandleFunc("/bad/likes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"OAuthException","message":"Error validating access token"}}`))
	})
	mux.HandleFunc("/7/picture", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("picture-bytes"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cacheDir = t.TempDir()
	t.Setenv("FB_GRAPH_URL", server.URL)
	t.Setenv("FB_REST_URL", server.URL+"/method")
	t.Setenv("FB_STORAGE", "disk")
	t.Setenv("FB_IMAGE_CACHE_PATH", cacheDir)
	t.Setenv("FB_ACCESS_TOKEN", "")
	return cacheDir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, args)
	return out.String(), err
}

func TestRun_NoCommand(t *testing.T) {
	_, err := runCLI(t)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_UnknownCommand(t *testing.T) {
	_, err := runCLI(t, "-token", "tok", "teleport")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "teleport")
}

func TestRun_MissingArguments(t *testing.T) {
	_, err := runCLI(t, "-token", "tok", "object")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "usage: fbcli object")
}

func TestRun_Me(t *testing.T) {
	setupFakeGraph(t)

	out, err := runCLI(t, "-token", "tok", "me")
	require.NoError(t, err)

	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "CLI User", user["Name"])
	assert.Equal(t, "CLI", user["FirstName"])
}

func TestRun_Object(t *testing.T) {
	setupFakeGraph(t)

	out, err := runCLI(t, "-token", "tok", "object", "42")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "An Object"`)
}

func TestRun_Friends_PrintsTypedUsers(t *testing.T) {
	setupFakeGraph(t)

	out, err := runCLI(t, "-token", "tok", "friends")
	require.NoError(t, err)

	var users []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "Friend A", users[0]["Name"])
	assert.Equal(t, "3", users[1]["ID"])
}

func TestRun_Details(t *testing.T) {
	setupFakeGraph(t)

	out, err := runCLI(t, "-token", "tok", "details", "2,3", "name")
	require.NoError(t, err)
	assert.Contains(t, out, "Friend B")
}

func TestRun_Post(t *testing.T) {
	setupFakeGraph(t)

	out, err := runCLI(t, "-token", "tok", "post", "me", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "posted\n", out)
}

func TestRun_Like_AuthFailure(t *testing.T) {
	setupFakeGraph(t)

	_, err := runCLI(t, "-token", "tok", "like", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error validating access token")
}

func TestRun_Picture_TempToFile(t *testing.T) {
	cacheDir := setupFakeGraph(t)
	outFile := filepath.Join(t.TempDir(), "7.img")

	out, err := runCLI(t, "-token", "tok", "picture", "7", "-temp", "-out", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 13 bytes")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("picture-bytes"), data)

	_, err = os.Stat(filepath.Join(cacheDir, "temp7"))
	assert.NoError(t, err, "temporary picture cached under the temp key")
}

func TestParseInvocation_InterleavedFlags(t *testing.T) {
	var errOut bytes.Buffer
	inv, err := parseInvocation("picture", []string{"7", "-temp", "-width", "40"}, &errOut)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, inv.args)
	assert.True(t, inv.temp)
	assert.Equal(t, 40, inv.scale.Width)
}
